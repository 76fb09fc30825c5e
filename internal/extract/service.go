package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/pdf"
)

// Normalizer defines the interface for bounding and encoding raw images
type Normalizer interface {
	Normalize(raw []byte, format domain.ImageFormat) (domain.EmbeddableImage, error)
}

// Service extracts text and images from uploaded documents
type Service struct {
	container  domain.Container
	normalizer Normalizer
	validator  *pdf.Validator
	logger     *domain.Logger
}

// NewService creates a new extraction service
func NewService(container domain.Container, normalizer Normalizer, validator *pdf.Validator) *Service {
	if validator == nil {
		validator = pdf.NewValidator(0)
	}
	return &Service{
		container:  container,
		normalizer: normalizer,
		validator:  validator,
		logger:     domain.DefaultLogger.WithPrefix("extract"),
	}
}

// Extract produces the page-ordered text and images of a document. The type
// is inferred from filename. On failure the returned content is empty but
// never nil.
func (s *Service) Extract(ctx context.Context, filename string, data []byte) (*domain.ExtractedContent, error) {
	sourceType, err := pdf.DetectSourceType(filename)
	if err != nil {
		return &domain.ExtractedContent{}, err
	}

	if err := s.validator.ValidateSource(data); err != nil {
		return &domain.ExtractedContent{Source: sourceType}, err
	}

	switch sourceType {
	case domain.SourcePDF:
		return s.extractPDF(ctx, filename, data)
	default:
		return s.extractImage(sourceType, filename, data)
	}
}

// extractImage treats the whole file as one standalone image
func (s *Service) extractImage(sourceType domain.SourceType, filename string, data []byte) (*domain.ExtractedContent, error) {
	format := domain.FormatJPEG
	if sourceType == domain.SourcePNG {
		format = domain.FormatPNG
	}

	img, err := s.normalizer.Normalize(data, format)
	if err != nil {
		s.logger.Error("Failed to decode image %s: %v", filename, err)
		return &domain.ExtractedContent{Source: sourceType}, err
	}

	s.logger.Info("Normalized image %s to %dx%d %s", filename, img.Width, img.Height, format)

	return &domain.ExtractedContent{
		Source:    sourceType,
		Images:    []domain.EmbeddableImage{img},
		PageCount: 1,
	}, nil
}

// extractPDF walks pages in order, appending each page's text layer and its
// embedded images. A bad image is skipped; it never aborts the document.
func (s *Service) extractPDF(ctx context.Context, filename string, data []byte) (*domain.ExtractedContent, error) {
	startTime := time.Now()

	doc, err := s.container.Open(data)
	if err != nil {
		s.logger.Error("Failed to open %s: %v", filename, err)
		if !domain.IsType(err, domain.ErrorTypeDocumentOpen) {
			err = domain.DocumentOpenError("failed to open document", err)
		}
		return &domain.ExtractedContent{Source: domain.SourcePDF}, err
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	s.logger.Info("Extracting %s: %d pages", filename, pageCount)

	var text strings.Builder
	images := make([]domain.EmbeddableImage, 0)
	var skipped []domain.SkippedImage

	for page := 1; page <= pageCount; page++ {
		select {
		case <-ctx.Done():
			return &domain.ExtractedContent{Source: domain.SourcePDF}, ctx.Err()
		default:
		}

		pageText, err := doc.Text(page)
		if err != nil {
			s.logger.Warn("No text layer on page %d: %v", page, err)
			pageText = ""
		}
		text.WriteString(pageText)

		raws, err := doc.Images(page)
		if err != nil {
			s.logger.Warn("Skipping images on page %d: %v", page, err)
			skipped = append(skipped, domain.SkippedImage{Page: page, Index: -1, Err: err})
			continue
		}

		for _, raw := range raws {
			img, err := s.normalizer.Normalize(raw.Data, domain.FormatJPEG)
			if err != nil {
				s.logger.Warn("Skipping image %d (%s) on page %d: %v", raw.Index, raw.Name, page, err)
				skipped = append(skipped, domain.SkippedImage{Page: page, Index: raw.Index, Err: err})
				continue
			}
			images = append(images, img)
		}

		s.logger.Debug("Page %d: %d chars, %d images", page, len(pageText), len(raws))
	}

	s.logger.Info("Extraction of %s complete: %d chars, %d images, %d skipped in %v",
		filename, text.Len(), len(images), len(skipped), time.Since(startTime).Round(time.Millisecond))

	return &domain.ExtractedContent{
		Source:    domain.SourcePDF,
		Text:      text.String(),
		Images:    images,
		PageCount: pageCount,
		Skipped:   skipped,
	}, nil
}

// Summary formats a one-line description of extracted content
func Summary(c *domain.ExtractedContent) string {
	if c == nil {
		return "nothing extracted"
	}
	return fmt.Sprintf("%d pages, %d characters of text, %d images (%d skipped)",
		c.PageCount, len([]rune(c.Text)), len(c.Images), len(c.Skipped))
}
