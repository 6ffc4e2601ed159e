package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ymu4/document-processor/internal/agent"
	"github.com/ymu4/document-processor/internal/agent/analyzer"
	"github.com/ymu4/document-processor/internal/agent/combiner"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/utils/validator"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/storage"
)

// DocumentService turns an upload batch into one combined record.
type DocumentService interface {
	Ingest(ctx context.Context, uploads []models.Upload) (*models.IngestResult, error)
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) (*models.IngestResult, error)
}

type ServiceConfig struct {
	// MaxConcurrent bounds how many files of a batch are parsed at once.
	MaxConcurrent int
}

type Service struct {
	parser    *agent.FormatParser
	validator *validator.DocumentValidator
	storage   storage.Storage
	logger    logger.Logger
	config    *ServiceConfig
}

func NewService(
	parser *agent.FormatParser,
	v *validator.DocumentValidator,
	store storage.Storage,
	log logger.Logger,
	cfg *ServiceConfig,
) *Service {
	if cfg == nil {
		cfg = &ServiceConfig{MaxConcurrent: 5}
	}
	return &Service{
		parser:    parser,
		validator: v,
		storage:   store,
		logger:    log.Named("ingest"),
		config:    cfg,
	}
}

// Ingest validates the batch, parses every file and combines the parsed ones.
// A file that cannot be staged or parsed is reported in Files and skipped;
// only a batch with no parsed file at all is an error.
func (s *Service) Ingest(ctx context.Context, uploads []models.Upload) (*models.IngestResult, error) {
	valid, err := s.validator.ValidateBatch(uploads)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	s.logger.Info("Starting batch processing",
		logger.String("batchId", batchID),
		logger.Int("fileCount", len(valid)),
	)

	records := make([]*models.DocumentRecord, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}
	for i, u := range valid {
		g.Go(func() error {
			records[i] = s.processFile(gctx, batchID, u)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]models.FileStatus, len(records))
	parsed := 0
	for i, r := range records {
		files[i] = models.FileStatus{FileName: r.FileName, Parsed: r.Parsed, Type: r.Type, Error: r.Error}
		if r.Parsed {
			parsed++
		}
	}
	if parsed == 0 {
		s.logger.Warn("No file in batch could be parsed", logger.String("batchId", batchID))
		return nil, &models.AllFilesFailedError{Failures: files}
	}

	combined := combiner.Combine(records)
	result := &models.IngestResult{
		BatchID:    batchID,
		Combined:   combined,
		Files:      files,
		Hints:      analyzer.Analyze(combined),
		ReceivedAt: time.Now().UTC(),
	}
	s.logger.Info("Batch processed",
		logger.String("batchId", batchID),
		logger.Int("parsed", parsed),
		logger.Int("failed", len(files)-parsed),
		logger.String("type", string(combined.Type)),
	)
	return result, nil
}

// processFile stages the upload, reads it back and parses it. The staged
// copy is always removed; a failed removal is only logged.
func (s *Service) processFile(ctx context.Context, batchID string, u models.Upload) *models.DocumentRecord {
	if u.ReadErr != nil {
		return s.accessFailure(u.FileName, u.ReadErr)
	}
	key := fmt.Sprintf("%s/%s%s", batchID, uuid.New().String(), strings.ToLower(filepath.Ext(u.FileName)))

	stored, err := s.storage.Store(ctx, bytes.NewReader(u.Data), key)
	if err != nil {
		return s.accessFailure(u.FileName, fmt.Errorf("staging upload: %w", err))
	}
	defer func() {
		if err := s.storage.Delete(context.WithoutCancel(ctx), stored); err != nil {
			s.logger.Warn("Failed to delete staged file",
				logger.String("key", stored),
				logger.String("fileName", u.FileName),
				logger.Error(err),
			)
		}
	}()

	data, err := s.readStaged(ctx, stored)
	if err != nil {
		return s.accessFailure(u.FileName, fmt.Errorf("reading staged upload: %w", err))
	}

	return s.parser.Parse(data, u.MediaType, u.FileName)
}

func (s *Service) readStaged(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) accessFailure(fileName string, err error) *models.DocumentRecord {
	ferr := &models.FileAccessError{FileName: fileName, Err: err}
	s.logger.Warn("File could not be accessed", logger.String("fileName", fileName), logger.Error(ferr))
	return agent.FailureRecord(fileName, ferr)
}

// ProcessBatch reads multipart file headers into uploads and ingests them.
// A part that cannot be read is recorded as a failed file.
func (s *Service) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) (*models.IngestResult, error) {
	uploads := make([]models.Upload, 0, len(files))
	for _, header := range files {
		data, err := readHeader(header)
		uploads = append(uploads, models.Upload{
			FileName:  header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Data:      data,
			ReadErr:   err,
		})
	}
	return s.Ingest(ctx, uploads)
}

func readHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
