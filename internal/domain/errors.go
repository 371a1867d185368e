package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserInactive          = errors.New("user is inactive")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrShipmentNotFound      = errors.New("shipment not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrTemplateInUse         = errors.New("template is referenced by declarations and cannot be deleted")
	ErrDeclarationNotFound   = errors.New("declaration not found")
	ErrMissingActiveTemplate = errors.New("no active template for category")
	ErrMalformedOCROutput    = errors.New("ocr output is neither flat text nor a token list")
	ErrInvalidRuleConfig     = errors.New("extraction rule configuration is invalid")
	ErrDocumentsNotReady     = errors.New("shipment has documents that are not yet processed")
	ErrUnknownDocumentType   = errors.New("unknown document type")
)
