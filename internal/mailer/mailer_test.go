package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mentortrack/internal/apierr"
	"mentortrack/internal/queue"
)

type fakeRecipients struct {
	to, cc, bcc []string
}

func (f *fakeRecipients) Recipients(ctx context.Context) ([]string, []string, []string, error) {
	return f.to, f.cc, f.bcc, nil
}

type fakeSender struct {
	subject     string
	body        string
	to, cc, bcc []string
	calls       int
	err         error
}

func (f *fakeSender) Send(ctx context.Context, subject, htmlBody string, to, cc, bcc []string) error {
	f.calls++
	f.subject, f.body = subject, htmlBody
	f.to, f.cc, f.bcc = to, cc, bcc
	return f.err
}

func TestDispatchReportNoRecipients(t *testing.T) {
	sender := &fakeSender{}
	d := NewSyncDispatcher(&fakeRecipients{}, sender)

	_, err := d.DispatchReport(context.Background(), "<html></html>", false)
	require.Error(t, err)
	require.True(t, apierr.IsCode(err, apierr.CodeValidation))
	require.Equal(t, "No recipients found.", err.Error())
	require.Zero(t, sender.calls)
}

func TestDispatchReportSendsToAllRecipients(t *testing.T) {
	sender := &fakeSender{}
	d := NewSyncDispatcher(&fakeRecipients{
		to:  []string{"a@x.org"},
		cc:  []string{"b@x.org"},
		bcc: []string{"c@x.org"},
	}, sender)

	msg, err := d.DispatchReport(context.Background(), "<html>report</html>", true)
	require.NoError(t, err)
	require.Equal(t, "Email sent successfully.", msg)
	require.Equal(t, 1, sender.calls)
	require.Equal(t, "Absent Report", sender.subject)
	require.Equal(t, "<html>report</html>", sender.body)
	require.Equal(t, []string{"a@x.org"}, sender.to)
	require.Equal(t, []string{"b@x.org"}, sender.cc)
	require.Equal(t, []string{"c@x.org"}, sender.bcc)
}

func TestReportSubject(t *testing.T) {
	require.Equal(t, "Attendance Report", ReportSubject(false))
	require.Equal(t, "Absent Report", ReportSubject(true))
}

func TestBuildMessageKeepsBccOutOfHeaders(t *testing.T) {
	msg := string(buildMessage("no-reply@x.org", "Attendance Report", "<p>hi</p>",
		[]string{"a@x.org"}, []string{"b@x.org"}))

	require.Contains(t, msg, "From: no-reply@x.org\r\n")
	require.Contains(t, msg, "To: a@x.org\r\n")
	require.Contains(t, msg, "Cc: b@x.org\r\n")
	require.Contains(t, msg, "Subject: Attendance Report\r\n\r\n<p>hi</p>")
	require.NotContains(t, msg, "Bcc")

	headers, _, found := strings.Cut(msg, "\r\n\r\n")
	require.True(t, found)
	require.NotContains(t, headers, "<p>hi</p>")
}

func TestEnvelopeIncludesBcc(t *testing.T) {
	got := envelope([]string{"a@x.org"}, []string{"b@x.org"}, []string{"c@x.org"})
	require.Equal(t, []string{"a@x.org", "b@x.org", "c@x.org"}, got)
}

func TestQueueDispatcherPublishes(t *testing.T) {
	q := queue.NewInMemory(1)
	d := NewQueueDispatcher(q)

	msg, err := d.DispatchReport(context.Background(), "<html>queued</html>", false)
	require.NoError(t, err)
	require.Equal(t, "Email report queued for delivery.", msg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, err := q.Consume(ctx)
	require.NoError(t, err)
	queued := <-out
	require.Equal(t, MsgTypeReportEmail, queued.Type)
	require.JSONEq(t, `{"html": "<html>queued</html>", "absent": false}`, string(queued.Body))
}

func TestHandleQueuedSendsDecodedReport(t *testing.T) {
	sender := &fakeSender{}
	d := NewSyncDispatcher(&fakeRecipients{to: []string{"a@x.org"}}, sender)

	msg, err := queue.NewMessage(MsgTypeReportEmail, ReportEmail{HTML: "<p>r</p>", Absent: true})
	require.NoError(t, err)
	require.NoError(t, HandleQueued(context.Background(), msg, d))
	require.Equal(t, "Absent Report", sender.subject)
	require.Equal(t, "<p>r</p>", sender.body)
}

func TestHandleQueuedRejectsMalformedBody(t *testing.T) {
	d := NewSyncDispatcher(&fakeRecipients{to: []string{"a@x.org"}}, &fakeSender{})

	err := HandleQueued(context.Background(), queue.Message{
		ID:   "m1",
		Type: MsgTypeReportEmail,
		Body: []byte("not json"),
	}, d)
	require.Error(t, err)
	require.Contains(t, err.Error(), "m1")
}
