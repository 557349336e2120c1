package usecase

import "context"

// Mailer is the email dispatch capability consumed by the usecases. It is
// injected at construction so tests can substitute a double and no hidden
// process-wide transport exists.
type Mailer interface {
	// Send delivers one message and blocks until the transport accepts or
	// rejects it. Implementations must bound the call with a timeout.
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}
