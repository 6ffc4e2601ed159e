package validator

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/agent"
	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

// DocumentValidator checks an upload batch before any file is parsed.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

// ValidatorConfig bounds a batch.
type ValidatorConfig struct {
	MaxFiles     int
	MaxFileSize  int64
	AllowedTypes []string
	MaxPageCount int
}

// ConfigFrom adapts the ingest section of the application config.
func ConfigFrom(c config.IngestConfig) *ValidatorConfig {
	return &ValidatorConfig{
		MaxFiles:     c.MaxFiles,
		MaxFileSize:  c.MaxFileSize,
		AllowedTypes: c.AllowedTypes,
		MaxPageCount: c.MaxPDFPages,
	}
}

func NewDocumentValidator(log logger.Logger, cfg *ValidatorConfig) *DocumentValidator {
	if cfg == nil {
		cfg = ConfigFrom(config.Default().Ingest)
	}
	return &DocumentValidator{logger: log, config: cfg}
}

// ValidateBatch rejects the whole batch on the first violation. On success it returns
// the uploads with their media types resolved.
func (v *DocumentValidator) ValidateBatch(uploads []models.Upload) ([]models.Upload, error) {
	if len(uploads) == 0 {
		return nil, &models.ValidationError{Code: models.CodeNoFiles, Message: "no files were uploaded"}
	}
	if v.config.MaxFiles > 0 && len(uploads) > v.config.MaxFiles {
		return nil, &models.ValidationError{
			Code:    models.CodeTooManyFiles,
			Message: fmt.Sprintf("at most %d files may be uploaded at once, got %d", v.config.MaxFiles, len(uploads)),
		}
	}

	seen := make(map[string]bool, len(uploads))
	out := make([]models.Upload, len(uploads))
	for i, u := range uploads {
		u.FileName = filepath.Base(strings.TrimSpace(u.FileName))
		if seen[u.FileName] {
			return nil, &models.ValidationError{
				Code:     models.CodeDuplicateName,
				Message:  "duplicate file name in batch",
				FileName: u.FileName,
			}
		}
		seen[u.FileName] = true

		resolved, err := v.validateFile(u)
		if err != nil {
			v.logger.Warn("File rejected",
				logger.String("filename", u.FileName),
				logger.Error(err),
			)
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (v *DocumentValidator) validateFile(u models.Upload) (models.Upload, error) {
	// Unreadable uploads have no content to check; ingest records them as failed.
	if u.ReadErr != nil {
		return u, nil
	}
	if v.config.MaxFileSize > 0 && int64(len(u.Data)) > v.config.MaxFileSize {
		return u, &models.ValidationError{
			Code:     models.CodeFileTooLarge,
			Message:  fmt.Sprintf("file exceeds the %d MB limit", v.config.MaxFileSize/(1024*1024)),
			FileName: u.FileName,
		}
	}

	u.MediaType = ResolveMediaType(u.MediaType, u.FileName, u.Data)
	if !v.allowed(u.MediaType) {
		return u, &models.ValidationError{
			Code:     models.CodeTypeNotAllowed,
			Message:  fmt.Sprintf("file type %q is not supported", u.MediaType),
			FileName: u.FileName,
		}
	}

	if u.MediaType == document.MediaPDF && v.config.MaxPageCount > 0 {
		if err := v.checkPageCount(u); err != nil {
			return u, err
		}
	}
	return u, nil
}

func (v *DocumentValidator) allowed(mediaType string) bool {
	for _, t := range v.config.AllowedTypes {
		if document.NormalizeMediaType(t) == mediaType {
			return true
		}
	}
	return false
}

// checkPageCount enforces the page limit. A PDF that pdfcpu cannot read is passed
// through; the extractor reports its own failure.
func (v *DocumentValidator) checkPageCount(u models.Upload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("PDF page count panicked", logger.String("filename", u.FileName), logger.Any("panic", r))
			err = nil
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(u.Data), conf)
	if err != nil {
		v.logger.Warn("Could not count PDF pages",
			logger.String("filename", u.FileName),
			logger.Error(err),
		)
		return nil
	}
	if pages > v.config.MaxPageCount {
		return &models.ValidationError{
			Code:     models.CodeTooManyPages,
			Message:  fmt.Sprintf("PDF has %d pages, the limit is %d", pages, v.config.MaxPageCount),
			FileName: u.FileName,
		}
	}
	return nil
}

// ResolveMediaType picks the media type for an upload: the declared type when it is
// specific, else the file extension, else a content sniff.
func ResolveMediaType(declared, fileName string, data []byte) string {
	mt := agent.ResolveMediaType(declared, fileName)
	switch {
	case mt == "application/csv":
		return document.MediaCSV
	case mt == document.MediaXLS && strings.EqualFold(filepath.Ext(fileName), ".csv"):
		// Some browsers declare CSV uploads as Excel.
		return document.MediaCSV
	case mt != "" && mt != document.MediaOctet:
		return mt
	case len(data) == 0:
		return document.MediaOctet
	}
	return document.NormalizeMediaType(mimetype.Detect(data).String())
}
