package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"parcelscope/internal/domain"
	"parcelscope/internal/export"
	"parcelscope/internal/geometry"
	"parcelscope/internal/ingest"
	"parcelscope/internal/normalize"
	"parcelscope/internal/parser"
	"parcelscope/internal/port"
)

// sniffWindow is how much of an upload the document type heuristics see.
const sniffWindow = 4096

// UploadInput is the DTO for document uploads. Size is the size declared by
// the client; the body is still read through a limit.
type UploadInput struct {
	Filename         string
	Size             int64
	Body             io.Reader
	DocumentTypeHint string
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Document *domain.Document
	Summary  string
}

// ExportInput selects what to export: an inline result, or the latest
// analysis stored for FileID.
type ExportInput struct {
	Result *domain.AnalysisResult
	FileID *uuid.UUID
	Format string
}

// AnalysisServiceConfig holds the service's limits and storage location.
type AnalysisServiceConfig struct {
	Bucket       string
	MaxFileSize  int64
	RetentionTTL time.Duration
}

// AnalysisService runs the upload → analyze → validate → export pipeline.
type AnalysisService interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	GetDocument(ctx context.Context, fileID uuid.UUID) (*domain.Document, error)
	DeleteDocument(ctx context.Context, fileID uuid.UUID) error
	Analyze(ctx context.Context, fileID uuid.UUID, documentTypeHint string) (*domain.Analysis, error)
	AnalyzeText(ctx context.Context, text string) (*domain.Analysis, error)
	Validate(vertices []domain.Vertex) geometry.CheckResult
	Export(ctx context.Context, input ExportInput) (*export.Output, error)
	Ping(ctx context.Context) error
}

type analysisService struct {
	docs      port.DocumentStore
	storage   port.ObjectStorage
	parser    port.DocumentParser
	builder   *parser.Builder
	validator *geometry.Validator
	cfg       AnalysisServiceConfig
}

// NewAnalysisService creates a new AnalysisService implementation.
func NewAnalysisService(
	docs port.DocumentStore,
	storage port.ObjectStorage,
	docParser port.DocumentParser,
	builder *parser.Builder,
	validator *geometry.Validator,
	cfg AnalysisServiceConfig,
) AnalysisService {
	return &analysisService{
		docs:      docs,
		storage:   storage,
		parser:    docParser,
		builder:   builder,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *analysisService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.Body == nil {
		return nil, domain.ErrMissingFile
	}
	if input.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes declared, limit %d", domain.ErrPayloadTooLarge, input.Size, s.cfg.MaxFileSize)
	}

	fileType, err := ingest.FileTypeFromName(input.Filename)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: limit %d bytes", domain.ErrPayloadTooLarge, s.cfg.MaxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidRequest)
	}

	mediaType, err := ingest.SniffContent(fileType, data)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New()
	now := time.Now().UTC()
	inspection := ingest.Inspect(fileType, data)
	doc := &domain.Document{
		ID:              fileID,
		OriginalName:    input.Filename,
		FileType:        fileType,
		ContentType:     mediaType,
		FileSize:        int64(len(data)),
		DocumentType:    ingest.DetectDocumentType(input.Filename, data[:min(len(data), sniffWindow)], input.DocumentTypeHint),
		StorageBucket:   s.cfg.Bucket,
		StorageKey:      fmt.Sprintf("uploads/%s/%s.%s", fileID, fileID, fileType),
		CoordinateHints: inspection.CoordinatePatterns,
		UploadedAt:      now,
		ExpiresAt:       now.Add(s.cfg.RetentionTTL),
	}

	log.Printf("analysisService.Upload: storing %s as %s (%s, %d bytes, detected %s)",
		input.Filename, fileID, mediaType, doc.FileSize, doc.DocumentType)

	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      doc.StorageBucket,
		Key:         doc.StorageKey,
		Body:        bytes.NewReader(data),
		ContentType: mediaType,
		Size:        doc.FileSize,
		Metadata: map[string]string{
			"file-id":       fileID.String(),
			"document-type": string(doc.DocumentType),
			"file-type":     string(doc.FileType),
		},
		Expires: doc.ExpiresAt,
	})
	if err != nil {
		log.Printf("analysisService.Upload: storage upload failed for %s: %v", fileID, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
	}

	if err := s.docs.Save(ctx, doc); err != nil {
		log.Printf("analysisService.Upload: saving document %s failed: %v", fileID, err)
		_ = s.storage.Delete(context.WithoutCancel(ctx), doc.StorageBucket, doc.StorageKey)
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
	}

	return &UploadResult{Document: doc, Summary: inspection.Summary}, nil
}

func (s *analysisService) GetDocument(ctx context.Context, fileID uuid.UUID) (*domain.Document, error) {
	return s.docs.Get(ctx, fileID)
}

func (s *analysisService) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	log.Printf("analysisService.DeleteDocument: deleting %s", fileID)
	return s.docs.Delete(ctx, fileID)
}

func (s *analysisService) Analyze(ctx context.Context, fileID uuid.UUID, documentTypeHint string) (*domain.Analysis, error) {
	var hint domain.DocumentType
	if documentTypeHint != "" {
		t, ok := domain.ParseDocumentType(documentTypeHint)
		if !ok {
			return nil, fmt.Errorf("%w: unknown document_type %q", domain.ErrInvalidRequest, documentTypeHint)
		}
		hint = t
	}

	doc, err := s.docs.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Download(ctx, doc.StorageBucket, doc.StorageKey)
	if err != nil {
		log.Printf("analysisService.Analyze: download failed for %s: %v", fileID, err)
		// the record outlived its blob, e.g. a bucket lifecycle rule fired first
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
	}

	req, err := s.builder.Build(ctx, doc, data, hint)
	if err != nil {
		return nil, err
	}

	analysis, err := s.run(ctx, req)
	if err != nil {
		log.Printf("analysisService.Analyze: analysis of %s failed: %v", fileID, err)
		return nil, err
	}

	// only a fully normalized and validated analysis becomes exportable
	if err := s.docs.SaveAnalysis(ctx, fileID, analysis); err != nil {
		log.Printf("analysisService.Analyze: could not keep analysis for %s: %v", fileID, err)
	}
	return analysis, nil
}

func (s *analysisService) AnalyzeText(ctx context.Context, text string) (*domain.Analysis, error) {
	req, err := s.builder.BuildText(text)
	if err != nil {
		return nil, err
	}
	analysis, err := s.run(ctx, req)
	if err != nil {
		log.Printf("analysisService.AnalyzeText: analysis failed: %v", err)
		return nil, err
	}
	return analysis, nil
}

// run calls the model, then normalizes and validates its answer.
func (s *analysisService) run(ctx context.Context, req *port.AnalysisRequest) (*domain.Analysis, error) {
	start := time.Now()
	resp, err := s.parser.Analyze(ctx, *req)
	if err != nil {
		return nil, err
	}

	result, normReport, err := normalize.Normalize(resp.Raw)
	if err != nil {
		return nil, err
	}

	geoReport, err := s.validator.Validate(result)
	if err != nil {
		return nil, err
	}

	flags := make([]domain.QualityFlag, 0, len(normReport.Flags)+len(geoReport.Flags))
	flags = append(flags, normReport.Flags...)
	flags = append(flags, geoReport.Flags...)

	analysis := &domain.Analysis{
		ID:              uuid.New(),
		FileID:          req.FileID,
		AnalysisResult:  *result,
		Flags:           flags,
		Metrics:         geoReport.Metrics,
		SkippedVertices: normReport.SkippedVertices,
		ExtractionNotes: normReport.ExtractionNotes,
		ModelUsed:       resp.ModelUsed,
		AnalyzedAt:      time.Now().UTC(),
	}
	log.Printf("analysisService.run: %s returned %d vertices (confidence %.2f, flags %v) in %s",
		resp.ModelUsed, len(result.Vertices), result.ConfidenceScore, flags, time.Since(start).Round(time.Millisecond))
	return analysis, nil
}

func (s *analysisService) Validate(vertices []domain.Vertex) geometry.CheckResult {
	return s.validator.Check(vertices)
}

func (s *analysisService) Export(ctx context.Context, input ExportInput) (*export.Output, error) {
	var result *domain.AnalysisResult
	switch {
	case input.Result != nil:
		// inline results come from the client and get the same range checks
		if _, err := s.validator.Validate(input.Result); err != nil {
			return nil, err
		}
		result = input.Result
	case input.FileID != nil:
		analysis, err := s.docs.LatestAnalysis(ctx, *input.FileID)
		if err != nil {
			return nil, err
		}
		result = &analysis.AnalysisResult
	default:
		return nil, fmt.Errorf("%w: analysis_result or file_id is required", domain.ErrInvalidRequest)
	}

	out, err := export.Serialize(result, input.Format)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedExportFormat) && !errors.Is(err, domain.ErrEmptyResultExport) {
		log.Printf("analysisService.Export: serializing %s failed: %v", input.Format, err)
	}
	return out, err
}

func (s *analysisService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}
