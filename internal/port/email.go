package port

import "context"

// DeclarationReadyNotice carries the data for a "declaration ready" email.
type DeclarationReadyNotice struct {
	ShipmentName   string
	TotalFields    int
	FilledFields   int
	FilledRequired int
	RequiredFields int
}

// EmailSender defines the contract for sending notification emails.
type EmailSender interface {
	SendDeclarationReady(ctx context.Context, toEmail, toName string, notice DeclarationReadyNotice) error
}
