package noop

import (
	"context"
	"log"

	"silkroute/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op EmailSender that logs notices to stdout.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) SendDeclarationReady(_ context.Context, toEmail, toName string, notice port.DeclarationReadyNotice) error {
	log.Printf("[NOOP EMAIL] Declaration ready for %s (%s): shipment %q, %d/%d fields filled",
		toName, toEmail, notice.ShipmentName, notice.FilledFields, notice.TotalFields)
	return nil
}
