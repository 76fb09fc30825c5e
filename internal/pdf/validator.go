package pdf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spherical/docprompt/internal/domain"
)

// DefaultMaxSize is the largest upload accepted by default (50MB)
const DefaultMaxSize = 50 * 1024 * 1024

// Validator provides input validation for uploaded documents
type Validator struct {
	maxSize int64
}

// NewValidator creates a new validator instance. A non-positive maxSize
// selects DefaultMaxSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxSize: maxSize}
}

// DetectSourceType infers the document type from the filename extension
func DetectSourceType(filename string) (domain.SourceType, error) {
	if strings.TrimSpace(filename) == "" {
		return "", domain.UnsupportedTypeError("file name cannot be empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return domain.SourcePDF, nil
	case ".jpg", ".jpeg":
		return domain.SourceJPEG, nil
	case ".png":
		return domain.SourcePNG, nil
	case "":
		return "", domain.UnsupportedTypeError(fmt.Sprintf("file %s has no extension; expected .pdf, .jpg, .jpeg or .png", filename), nil)
	default:
		return "", domain.UnsupportedTypeError(fmt.Sprintf("unsupported file type %s; expected .pdf, .jpg, .jpeg or .png", ext), nil)
	}
}

// ValidateSource checks the raw upload before it is parsed
func (v *Validator) ValidateSource(data []byte) error {
	if len(data) == 0 {
		return domain.ValidationError("uploaded file is empty", nil)
	}

	if int64(len(data)) > v.maxSize {
		return domain.ValidationError(fmt.Sprintf("uploaded file is too large (%d MB, limit %d MB)",
			len(data)/(1024*1024), v.maxSize/(1024*1024)), nil)
	}

	return nil
}

// ValidateQuality validates image quality parameter
func ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}
