package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"mentortrack/internal/apierr"
	"mentortrack/internal/queue"
)

// MsgTypeReportEmail tags queued report emails.
const MsgTypeReportEmail = "report_email"

// ReportEmail is the queued payload for an outgoing report.
type ReportEmail struct {
	HTML   string `json:"html"`
	Absent bool   `json:"absent"`
}

// QueueDispatcher defers report delivery to the worker via the queue.
type QueueDispatcher struct {
	q queue.Queue
}

// NewQueueDispatcher creates a dispatcher publishing to q.
func NewQueueDispatcher(q queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{q: q}
}

// DispatchReport publishes the rendered report for asynchronous delivery.
func (d *QueueDispatcher) DispatchReport(ctx context.Context, html string, absent bool) (string, error) {
	msg, err := queue.NewMessage(MsgTypeReportEmail, ReportEmail{HTML: html, Absent: absent})
	if err != nil {
		return "", apierr.Internal(err)
	}
	if err := d.q.Publish(ctx, msg); err != nil {
		return "", apierr.Internal(fmt.Errorf("queue publish failed: %w", err))
	}
	return "Email report queued for delivery.", nil
}

// HandleQueued decodes a queued report email and sends it. The worker calls
// this for each consumed message.
func HandleQueued(ctx context.Context, msg queue.Message, d *SyncDispatcher) error {
	var payload ReportEmail
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return fmt.Errorf("decode %s message %s: %w", msg.Type, msg.ID, err)
	}
	_, err := d.DispatchReport(ctx, payload.HTML, payload.Absent)
	return err
}
