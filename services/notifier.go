package services

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"formdrop-api/config"
	"formdrop-api/models"
)

// Notifier delivers a message to a single address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, to, subject, body string) error

func (f NotifierFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, string, string) error { return nil }

// MailNotifier sends notifications over SMTP.
type MailNotifier struct {
	mailer *config.Mailer
}

func NewMailNotifier(mailer *config.Mailer) *MailNotifier {
	return &MailNotifier{mailer: mailer}
}

// Send dials the relay in the background so the caller never waits past
// ctx; the dialer's own timeout bounds the goroutine.
func (n *MailNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- n.mailer.SendMail([]string{to}, subject, body)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var submissionEmailTemplate = template.Must(template.New("submission").Parse(`<h1>New Form Submission</h1>
<p>You have received a new submission for form: <strong>{{.FormName}}</strong></p>
<table cellpadding="6" style="border-collapse:collapse">
{{- range .Fields}}
<tr><th align="left" valign="top">{{.Name}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
<p style="color:#666">Submission {{.SubmissionID}} received at {{.SubmittedAt}}</p>
`))

var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

type emailField struct {
	Name  string
	Value string
}

// RenderSubmissionEmail builds the subject and HTML body announcing sub.
// Field names and values are escaped; they come from the public Internet.
func RenderSubmissionEmail(form *models.Form, sub *models.Submission, fields models.FieldMap) (string, string, error) {
	view := struct {
		FormName     string
		SubmissionID string
		SubmittedAt  string
		Fields       []emailField
	}{
		FormName:     form.Name,
		SubmissionID: sub.ID,
		SubmittedAt:  sub.SubmittedAt.UTC().Format(time.RFC1123),
	}
	for _, f := range fields {
		view.Fields = append(view.Fields, emailField{Name: f.Name, Value: f.Value.Display()})
	}

	var buf bytes.Buffer
	if err := submissionEmailTemplate.Execute(&buf, view); err != nil {
		return "", "", err
	}
	subject := headerSafe.Replace("New submission for " + form.Name)
	return subject, buf.String(), nil
}
