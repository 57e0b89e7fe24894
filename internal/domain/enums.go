package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypePDF  FileType = "pdf"
	FileTypeTIFF FileType = "tiff"
	FileTypeBMP  FileType = "bmp"
	FileTypeTXT  FileType = "txt"
)

// AllowedFileTypes maps FileType to its canonical MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePNG:  "image/png",
	FileTypeJPG:  "image/jpeg",
	FileTypePDF:  "application/pdf",
	FileTypeTIFF: "image/tiff",
	FileTypeBMP:  "image/bmp",
	FileTypeTXT:  "text/plain",
}

// AllowedContentTypes maps sniffed MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"image/png":       FileTypePNG,
	"image/jpeg":      FileTypeJPG,
	"application/pdf": FileTypePDF,
	"image/tiff":      FileTypeTIFF,
	"image/bmp":       FileTypeBMP,
	"image/x-ms-bmp":  FileTypeBMP,
	"text/plain":      FileTypeTXT,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"png":  FileTypePNG,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"pdf":  FileTypePDF,
	"tiff": FileTypeTIFF,
	"tif":  FileTypeTIFF,
	"bmp":  FileTypeBMP,
	"txt":  FileTypeTXT,
}

// IsImage reports whether the file type is a raster image.
func (t FileType) IsImage() bool {
	switch t {
	case FileTypePNG, FileTypeJPG, FileTypeTIFF, FileTypeBMP:
		return true
	}
	return false
}

// DocumentType classifies what kind of property document was uploaded.
type DocumentType string

const (
	DocumentTypeParcelMap        DocumentType = "parcel_map"
	DocumentTypePlat             DocumentType = "plat"
	DocumentTypeSurvey           DocumentType = "survey"
	DocumentTypeLegalDescription DocumentType = "legal_description"
	DocumentTypeUnknown          DocumentType = "unknown"
)

// KnownDocumentTypes lists every document type in presentation order.
var KnownDocumentTypes = []DocumentType{
	DocumentTypeParcelMap,
	DocumentTypePlat,
	DocumentTypeSurvey,
	DocumentTypeLegalDescription,
	DocumentTypeUnknown,
}

// ParseDocumentType returns the DocumentType for s, or false if s is not one.
func ParseDocumentType(s string) (DocumentType, bool) {
	for _, t := range KnownDocumentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return DocumentTypeUnknown, false
}

// GeometryKind is the shape a vertex sequence describes.
type GeometryKind string

const (
	GeometryNone    GeometryKind = "none"
	GeometryPoint   GeometryKind = "point"
	GeometryLine    GeometryKind = "line"
	GeometryPolygon GeometryKind = "polygon"
)

// GeometryKindFor returns the geometry kind implied by a vertex count.
func GeometryKindFor(n int) GeometryKind {
	switch {
	case n == 0:
		return GeometryNone
	case n == 1:
		return GeometryPoint
	case n == 2:
		return GeometryLine
	default:
		return GeometryPolygon
	}
}

// QualityFlag is a non-fatal warning attached to an analysis result.
type QualityFlag string

const (
	FlagInsufficientVertices QualityFlag = "InsufficientVertices"
	FlagDegenerateGeometry   QualityFlag = "DegenerateGeometry"
	FlagImplausibleScale     QualityFlag = "ImplausibleScale"
	FlagIncompleteVertices   QualityFlag = "IncompleteVertices"
	FlagLowConfidence        QualityFlag = "LowConfidence"
)
