// internal/domain/notification/sender.go
package notification

import "context"

// Sender delivers a templated notification to a single recipient address.
// A nil error means the message was accepted by the transport.
type Sender interface {
	Send(ctx context.Context, recipient string, templateID TemplateID, data any) error
}
