// Package email delivers operational notifications to coaches: health alert
// warnings and stale lead digests.
package email

import "context"

// Sender delivers rendered notification emails.
type Sender interface {
	SendHealthAlertEmail(ctx context.Context, toEmail, clientID, fromStatus, toStatus string, score int) error
	SendStaleLeadsEmail(ctx context.Context, toEmail string, leadIDs []string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is not configured.
type NoopSender struct{}

func (NoopSender) SendHealthAlertEmail(ctx context.Context, toEmail, clientID, fromStatus, toStatus string, score int) error {
	return nil
}

func (NoopSender) SendStaleLeadsEmail(ctx context.Context, toEmail string, leadIDs []string) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}
