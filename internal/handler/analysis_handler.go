package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parcelscope/internal/domain"
	"parcelscope/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size limit for
// multipart boundaries and form fields.
const multipartOverhead = 1 << 20

// AnalysisHandler handles document upload, analysis, validation and export.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	maxFileSize     int64
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, maxFileSize int64) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, maxFileSize: maxFileSize}
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	FileID       string `json:"file_id" binding:"required"`
	DocumentType string `json:"document_type"`
}

// AnalyzeTextRequest is the body of POST /api/analyze/text.
type AnalyzeTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// CoordinateInput is one point submitted for validation.
type CoordinateInput struct {
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
	Description string   `json:"description"`
}

// ValidateRequest is the body of POST /api/validate.
type ValidateRequest struct {
	Coordinates []CoordinateInput `json:"coordinates" binding:"required,dive"`
}

// ExportResultInput is an analysis result posted back for export. The
// "result" object of an analyze response decodes into it directly; its
// metadata fields are ignored.
type ExportResultInput struct {
	DocumentType    string            `json:"document_type"`
	ConfidenceScore float64           `json:"confidence_score"`
	Vertices        []CoordinateInput `json:"vertices" binding:"required,dive"`
}

// ExportRequest is the body of POST /api/export. Exactly one of
// AnalysisResult and FileID selects the data.
type ExportRequest struct {
	AnalysisResult *ExportResultInput `json:"analysis_result"`
	FileID         string             `json:"file_id"`
	Format         string             `json:"format" binding:"required"`
}

// Upload handles POST /api/upload
// Accepts multipart field "file" and an optional "document_type" hint.
func (h *AnalysisHandler) Upload(c *gin.Context) {
	limit := h.maxFileSize + multipartOverhead
	if c.Request.ContentLength > limit {
		HandleError(c, fmt.Errorf("%w: request body is %d bytes", domain.ErrPayloadTooLarge, c.Request.ContentLength))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			HandleError(c, err)
		case errors.Is(err, http.ErrMissingFile):
			HandleError(c, domain.ErrMissingFile)
		default:
			HandleError(c, fmt.Errorf("%w: reading multipart form: %v", domain.ErrInvalidRequest, err))
		}
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.analysisService.Upload(c.Request.Context(), service.UploadInput{
		Filename:         header.Filename,
		Size:             header.Size,
		Body:             file,
		DocumentTypeHint: c.PostForm("document_type"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"file_id":      res.Document.ID,
		"document":     res.Document,
		"file_summary": res.Summary,
	})
}

// Analyze handles POST /api/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		HandleError(c, fmt.Errorf("%w: invalid file_id", domain.ErrInvalidRequest))
		return
	}

	analysis, err := h.analysisService.Analyze(c.Request.Context(), fileID, req.DocumentType)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": analysis})
}

// AnalyzeText handles POST /api/analyze/text
func (h *AnalysisHandler) AnalyzeText(c *gin.Context) {
	var req AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	analysis, err := h.analysisService.AnalyzeText(c.Request.Context(), req.Text)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": analysis})
}

// Validate handles POST /api/validate
// Out-of-range coordinates are reported in the body, not as an HTTP error.
func (h *AnalysisHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	RespondOK(c, gin.H{"validation": h.analysisService.Validate(toVertices(req.Coordinates))})
}

// Export handles POST /api/export
// With ?download=true the serialized file is returned as an attachment
// instead of the JSON envelope.
func (h *AnalysisHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	input := service.ExportInput{Format: req.Format}
	if req.AnalysisResult != nil {
		input.Result = req.AnalysisResult.toResult()
	}
	if req.FileID != "" {
		fileID, err := uuid.Parse(req.FileID)
		if err != nil {
			HandleError(c, fmt.Errorf("%w: invalid file_id", domain.ErrInvalidRequest))
			return
		}
		input.FileID = &fileID
	}

	out, err := h.analysisService.Export(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
		c.Data(http.StatusOK, out.ContentType, out.Data)
		return
	}
	RespondOK(c, gin.H{
		"format":       out.Format,
		"filename":     out.Filename,
		"content_type": out.ContentType,
		"export_data":  string(out.Data),
	})
}

// GetFile handles GET /api/files/:id
func (h *AnalysisHandler) GetFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	doc, err := h.analysisService.GetDocument(c.Request.Context(), fileID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"document": doc})
}

// DeleteFile handles DELETE /api/files/:id
func (h *AnalysisHandler) DeleteFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := h.analysisService.DeleteDocument(c.Request.Context(), fileID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"file_id": fileID, "message": "document deleted"})
}

// parseFileID reads the :id path parameter. On failure the error response
// has already been written.
func parseFileID(c *gin.Context) (uuid.UUID, bool) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		HandleError(c, fmt.Errorf("%w: invalid file id", domain.ErrInvalidRequest))
		return uuid.Nil, false
	}
	return fileID, true
}

func (in *ExportResultInput) toResult() *domain.AnalysisResult {
	docType, _ := domain.ParseDocumentType(in.DocumentType)
	return &domain.AnalysisResult{
		DocumentType:    docType,
		ConfidenceScore: in.ConfidenceScore,
		Vertices:        toVertices(in.Vertices),
	}
}

// toVertices numbers points by their position in the request; any index the
// client sent is ignored.
func toVertices(coords []CoordinateInput) []domain.Vertex {
	vertices := make([]domain.Vertex, len(coords))
	for i, in := range coords {
		vertices[i] = domain.Vertex{
			SequenceIndex: i,
			Latitude:      *in.Latitude,
			Longitude:     *in.Longitude,
			Description:   in.Description,
		}
	}
	return vertices
}
