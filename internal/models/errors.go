package models

import (
	"fmt"
	"strings"
)

// FileAccessError means the uploaded bytes could not be read or staged.
type FileAccessError struct {
	FileName string
	Err      error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.FileName, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// FormatParseError is an extractor-specific failure.
type FormatParseError struct {
	FileName string
	Format   DocumentType
	Err      error
}

func (e *FormatParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s extraction failed: %v", e.Format, e.Err)
	}
	return e.Err.Error()
}

func (e *FormatParseError) Unwrap() error { return e.Err }

// AllFilesFailedError is returned when no file of a batch could be parsed.
type AllFilesFailedError struct {
	Failures []FileStatus
}

func (e *AllFilesFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.FileName, f.Error))
	}
	return "no file could be processed: " + strings.Join(parts, "; ")
}

// ValidationError is an ingest boundary rejection.
type ValidationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	FileName string `json:"fileName,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("%s: %s", e.FileName, e.Message)
	}
	return e.Message
}

const (
	CodeTooManyFiles   = "TOO_MANY_FILES"
	CodeNoFiles        = "NO_FILES"
	CodeFileTooLarge   = "FILE_TOO_LARGE"
	CodeTypeNotAllowed = "INVALID_FILE_TYPE"
	CodeDuplicateName  = "DUPLICATE_FILE_NAME"
	CodeTooManyPages   = "TOO_MANY_PAGES"
)

// GenerationProviderError is surfaced when the primary provider and its fallback both failed.
// It carries the primary error.
type GenerationProviderError struct {
	Provider string
	Fallback string
	Err      error
}

func (e *GenerationProviderError) Error() string {
	if e.Fallback != "" {
		return fmt.Sprintf("generation provider %s failed (fallback %s also failed): %v", e.Provider, e.Fallback, e.Err)
	}
	return fmt.Sprintf("generation provider %s failed: %v", e.Provider, e.Err)
}

func (e *GenerationProviderError) Unwrap() error { return e.Err }
