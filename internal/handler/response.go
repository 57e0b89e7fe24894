package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parcelscope/internal/domain"
	"parcelscope/internal/parser"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
	ErrorCode string `json:"error_code"`
}

const internalErrorMessage = "an internal error occurred"

// RespondOK sends a 200 success response. Fields of body are merged into the
// envelope next to "success".
func RespondOK(c *gin.Context, body gin.H) {
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, kind domain.ErrorKind, code, msg string) {
	c.JSON(status, ErrorResponse{
		Success:   false,
		Error:     msg,
		ErrorKind: string(kind),
		ErrorCode: code,
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", domain.ErrPayloadTooLarge.Error()
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", err.Error()
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST", err.Error()
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error()
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error()
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found or expired"
	case errors.Is(err, domain.ErrDocumentNotAnalyzed):
		return http.StatusConflict, "NOT_ANALYZED", "document has no completed analysis"
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "model service unavailable; try again later"
	case errors.Is(err, domain.ErrModelTimeout):
		return http.StatusGatewayTimeout, "MODEL_TIMEOUT", "model request timed out"
	case errors.Is(err, domain.ErrModelRequestRejected):
		return http.StatusBadGateway, "MODEL_REQUEST_REJECTED", "model rejected the request"
	case errors.Is(err, domain.ErrMalformedModelResponse):
		return http.StatusUnprocessableEntity, "MALFORMED_MODEL_RESPONSE", err.Error()
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return http.StatusUnprocessableEntity, "INVALID_COORDINATE", err.Error()
	case errors.Is(err, domain.ErrUnsupportedExportFormat):
		return http.StatusBadRequest, "UNSUPPORTED_EXPORT_FORMAT", err.Error()
	case errors.Is(err, domain.ErrEmptyResultExport):
		return http.StatusUnprocessableEntity, "EMPTY_RESULT_EXPORT", err.Error()
	case errors.Is(err, domain.ErrStorageFailed):
		return http.StatusInternalServerError, "STORAGE_FAILED", internalErrorMessage
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", internalErrorMessage
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	kind := domain.KindOf(err)
	if status == http.StatusRequestEntityTooLarge {
		kind = domain.KindInput
	}
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] %s: %v", requestID, code, err)
	}

	var rlErr *parser.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(rlErr.RetryAfter.Seconds())))
	}
	RespondError(c, status, kind, code, msg)
}
