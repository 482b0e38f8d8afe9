package port

import "context"

// MailMessage is a fully rendered outbound email.
type MailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer is a fire-and-forget email transport. Delivery failures are logged
// by callers, never surfaced to the end user.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
