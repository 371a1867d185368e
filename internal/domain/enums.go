package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeTIFF FileType = "tiff"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeTIFF: "image/tiff",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
	"image/tiff":      FileTypeTIFF,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"tif":  FileTypeTIFF,
	"tiff": FileTypeTIFF,
}

// UserRole defines the role hierarchy.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// DocumentType classifies an uploaded shipment document.
type DocumentType string

const (
	DocTypeInvoice              DocumentType = "invoice"
	DocTypePackingList          DocumentType = "packing_list"
	DocTypeCertificateOfQuality DocumentType = "certificate_of_quality"
	DocTypeCustomsDeclaration   DocumentType = "customs_declaration"
	DocTypeBillOfLading         DocumentType = "bill_of_lading"
	DocTypeOriginCertificate    DocumentType = "origin_certificate"
)

// KnownDocumentTypes lists every recognized document type.
var KnownDocumentTypes = map[DocumentType]bool{
	DocTypeInvoice:              true,
	DocTypePackingList:          true,
	DocTypeCertificateOfQuality: true,
	DocTypeCustomsDeclaration:   true,
	DocTypeBillOfLading:         true,
	DocTypeOriginCertificate:    true,
}

// DocumentStatus represents the OCR/extraction lifecycle of a document.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusError      DocumentStatus = "error"
)

// ShipmentStatus represents the declaration lifecycle of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusProcessing ShipmentStatus = "processing"
	ShipmentStatusCompleted  ShipmentStatus = "completed"
	ShipmentStatusFailed     ShipmentStatus = "failed"
)

// DeclarationStatus represents the review lifecycle of a generated declaration.
type DeclarationStatus string

const (
	DeclarationStatusDraft     DeclarationStatus = "draft"
	DeclarationStatusReviewed  DeclarationStatus = "reviewed"
	DeclarationStatusSubmitted DeclarationStatus = "submitted"
)

// FieldDataType is the declared target type of an extractable field.
type FieldDataType string

const (
	FieldDataTypeText   FieldDataType = "text"
	FieldDataTypeNumber FieldDataType = "number"
	FieldDataTypeDate   FieldDataType = "date"
)

// RuleType identifies the extraction rule variant of a field definition.
type RuleType string

const (
	RuleTypeRegex    RuleType = "regex"
	RuleTypeKeyword  RuleType = "keyword"
	RuleTypePosition RuleType = "position"
)
