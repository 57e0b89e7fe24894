package domain

import "errors"

var (
	ErrMissingFile             = errors.New("file field is required")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrUnsupportedMediaType    = errors.New("unsupported media type")
	ErrPayloadTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrDocumentNotFound        = errors.New("document not found or expired")
	ErrDocumentNotAnalyzed     = errors.New("document has no completed analysis")
	ErrModelUnavailable        = errors.New("model service unavailable")
	ErrModelTimeout            = errors.New("model request timed out")
	ErrModelRequestRejected    = errors.New("model rejected the request")
	ErrMalformedModelResponse  = errors.New("malformed model response")
	ErrInvalidCoordinate       = errors.New("invalid coordinate")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	ErrEmptyResultExport       = errors.New("result has no vertices to export")
	ErrStorageFailed           = errors.New("document storage failed")
)

// ErrorKind groups errors into the categories surfaced to API callers.
type ErrorKind string

const (
	KindInput      ErrorKind = "InputError"
	KindUpstream   ErrorKind = "UpstreamError"
	KindParse      ErrorKind = "ParseError"
	KindValidation ErrorKind = "ValidationError"
	KindExport     ErrorKind = "ExportError"
	KindInternal   ErrorKind = "InternalError"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMissingFile, KindInput},
	{ErrInvalidRequest, KindInput},
	{ErrUnsupportedMediaType, KindInput},
	{ErrPayloadTooLarge, KindInput},
	{ErrDocumentNotFound, KindInput},
	{ErrDocumentNotAnalyzed, KindInput},
	{ErrModelUnavailable, KindUpstream},
	{ErrModelTimeout, KindUpstream},
	{ErrModelRequestRejected, KindUpstream},
	{ErrMalformedModelResponse, KindParse},
	{ErrInvalidCoordinate, KindValidation},
	{ErrUnsupportedExportFormat, KindExport},
	{ErrEmptyResultExport, KindExport},
}

// KindOf classifies err. Unrecognized errors are internal.
func KindOf(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
