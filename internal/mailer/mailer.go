package mailer

import (
	"context"
	"database/sql"
	"fmt"
	"net/smtp"
	"strings"

	"mentortrack/internal/apierr"
)

// RecipientSource yields the configured to/cc/bcc address lists.
type RecipientSource interface {
	Recipients(ctx context.Context) (to, cc, bcc []string, err error)
}

// Repository reads recipient lists from the email_addresses table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Recipients groups stored addresses by type. Unknown types are ignored.
func (r *Repository) Recipients(ctx context.Context) ([]string, []string, []string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, address FROM email_addresses`)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	var to, cc, bcc []string
	for rows.Next() {
		var kind, address string
		if err := rows.Scan(&kind, &address); err != nil {
			return nil, nil, nil, err
		}
		switch strings.ToLower(kind) {
		case "to":
			to = append(to, address)
		case "cc":
			cc = append(cc, address)
		case "bcc":
			bcc = append(bcc, address)
		}
	}
	return to, cc, bcc, rows.Err()
}

// Sender delivers one HTML message to the resolved recipient lists.
type Sender interface {
	Send(ctx context.Context, subject, htmlBody string, to, cc, bcc []string) error
}

// SMTP sends HTML mail over a plain SMTP relay.
type SMTP struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTP creates a sender. user may be empty for unauthenticated relays.
func NewSMTP(host, port, user, pass, from string) *SMTP {
	return &SMTP{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers one HTML message. cc appears in the headers; bcc recipients
// only appear on the envelope.
func (m *SMTP) Send(ctx context.Context, subject, htmlBody string, to, cc, bcc []string) error {
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	msg := buildMessage(m.from, subject, htmlBody, to, cc)
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, envelope(to, cc, bcc), msg)
}

// buildMessage assembles the MIME headers and HTML body. bcc never appears
// in headers.
func buildMessage(from, subject, htmlBody string, to, cc []string) []byte {
	var msg strings.Builder
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ",") + "\r\n")
	if len(cc) > 0 {
		msg.WriteString("Cc: " + strings.Join(cc, ",") + "\r\n")
	}
	msg.WriteString("Subject: " + subject + "\r\n\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}

// envelope is the full delivery list, bcc included.
func envelope(to, cc, bcc []string) []string {
	return append(append(append([]string{}, to...), cc...), bcc...)
}

// ReportSubject names the report email by its kind.
func ReportSubject(absent bool) string {
	if absent {
		return "Absent Report"
	}
	return "Attendance Report"
}

// SyncDispatcher sends report emails in the request path.
type SyncDispatcher struct {
	recipients RecipientSource
	sender     Sender
}

// NewSyncDispatcher creates a dispatcher that sends immediately.
func NewSyncDispatcher(recipients RecipientSource, sender Sender) *SyncDispatcher {
	return &SyncDispatcher{recipients: recipients, sender: sender}
}

// DispatchReport resolves recipients and sends the rendered report.
func (d *SyncDispatcher) DispatchReport(ctx context.Context, html string, absent bool) (string, error) {
	to, cc, bcc, err := d.recipients.Recipients(ctx)
	if err != nil {
		return "", apierr.Internal(err)
	}
	if len(to) == 0 {
		return "", apierr.Validation([]string{"No recipients found."})
	}
	if err := d.sender.Send(ctx, ReportSubject(absent), html, to, cc, bcc); err != nil {
		return "", apierr.Internal(fmt.Errorf("failed to send email: %w", err))
	}
	return "Email sent successfully.", nil
}
