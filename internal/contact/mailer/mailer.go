// Package mailer delivers contact notifications through an email provider.
package mailer

import (
	"context"

	"clubsite/internal/contact/model"
)

// Mailer sends one notification. Provider failures are returned as
// *apperr.DeliveryError.
type Mailer interface {
	Send(ctx context.Context, n model.Notification) error
	// Check verifies the provider accepts the configured credentials.
	Check(ctx context.Context) error
	Name() string
}
