package delivery

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Gateway sends a one-time code over a channel. Fire-and-report: no retries
// here, a failure is the caller's terminal outcome for that attempt. The
// purpose is a snake_case label ("verification", "password_reset") rendered
// into the delivered message.
type Gateway interface {
	SendEmail(ctx context.Context, to, code, purpose string) error
	SendSms(ctx context.Context, to, code, purpose string) error
}

// Dispatcher fans out to the concrete channel senders.
type Dispatcher struct {
	email *EmailSender
	sms   *SMSSender
}

func NewDispatcher(email *EmailSender, sms *SMSSender) *Dispatcher {
	return &Dispatcher{email: email, sms: sms}
}

func (d *Dispatcher) SendEmail(ctx context.Context, to, code, purpose string) error {
	return d.email.Send(ctx, to, code, purpose)
}

func (d *Dispatcher) SendSms(ctx context.Context, to, code, purpose string) error {
	return d.sms.Send(ctx, to, code, purpose)
}

// formatLabel renders a snake_case purpose as a title, e.g. "password_reset"
// becomes "Password Reset".
func formatLabel(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
