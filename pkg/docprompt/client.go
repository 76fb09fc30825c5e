// Package docprompt extracts text and images from PDFs and standalone images
// and sends them, together with a user instruction, to a multimodal
// generation service whose answer is streamed back as it grows.
package docprompt

import (
	"context"
	"iter"
	"os"
	"path/filepath"

	"github.com/spherical/docprompt/internal/config"
	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/extract"
	"github.com/spherical/docprompt/internal/imaging"
	"github.com/spherical/docprompt/internal/llm"
	"github.com/spherical/docprompt/internal/pdf"
	"github.com/spherical/docprompt/internal/session"
)

// Re-export content types for the public API
type (
	ExtractedContent = domain.ExtractedContent
	EmbeddableImage  = domain.EmbeddableImage
	PromptRequest    = domain.PromptRequest
	ContentBlock     = domain.ContentBlock
	Generator        = domain.Generator
	FragmentStream   = domain.FragmentStream
	Config           = config.Config
	ErrorType        = domain.ErrorType
)

// Error kinds callers can test for with IsType
const (
	ErrUnsupportedType = domain.ErrorTypeUnsupportedType
	ErrDecode          = domain.ErrorTypeDecode
	ErrDocumentOpen    = domain.ErrorTypeDocumentOpen
	ErrMissingPrompt   = domain.ErrorTypeMissingPrompt
	ErrGeneration      = domain.ErrorTypeGeneration
	ErrConfig          = domain.ErrorTypeConfig
	ErrValidation      = domain.ErrorTypeValidation
)

// IsType reports whether err is a docprompt error of kind t
func IsType(err error, t ErrorType) bool {
	return domain.IsType(err, t)
}

// Client is the main entry point for the library. It holds one session.
type Client struct {
	cfg     *config.Config
	session *session.Session
}

// NewClient creates a client configured from the environment and .env
func NewClient() (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with explicit configuration. The
// generator is built on first use, so a missing API key only fails
// generation calls.
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	service := newService(cfg)
	factory := func(ctx context.Context) (domain.Generator, error) {
		return llm.NewGenerator(ctx, cfg)
	}
	return &Client{cfg: cfg, session: session.New(service, factory)}, nil
}

// NewClientWithGenerator creates a client that sends requests to gen
func NewClientWithGenerator(cfg *Config, gen Generator) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	return &Client{cfg: cfg, session: session.WithGenerator(newService(cfg), gen)}, nil
}

func newService(cfg *config.Config) *extract.Service {
	return extract.NewService(
		pdf.NewContainer(),
		imaging.NewNormalizer(cfg.JPEGQuality),
		pdf.NewValidator(cfg.MaxUploadBytes),
	)
}

// Ingest extracts an uploaded file and makes it the current content
func (c *Client) Ingest(ctx context.Context, filename string, data []byte) (*ExtractedContent, error) {
	return c.session.Ingest(ctx, filename, data)
}

// IngestFile reads path and ingests it
func (c *Client) IngestFile(ctx context.Context, path string) (*ExtractedContent, error) {
	if _, err := pdf.DetectSourceType(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, domain.ValidationError("file not found", err)
	}
	if err != nil {
		return nil, domain.IOError("failed to stat input", err)
	}
	limit := c.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = pdf.DefaultMaxSize
	}
	if info.Size() > limit {
		return nil, domain.ValidationError("file exceeds the upload limit", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("failed to read input", err)
	}
	return c.session.Ingest(ctx, filepath.Base(path), data)
}

// Content returns the current content
func (c *Client) Content() *ExtractedContent {
	content, _ := c.session.Content()
	return content
}

// Generate streams the response to instruction over the current content.
// Every yielded value is the complete response so far.
func (c *Client) Generate(ctx context.Context, instruction string) (iter.Seq2[string, error], error) {
	return c.session.Generate(ctx, instruction)
}

// Complete returns the whole response to instruction in one piece
func (c *Client) Complete(ctx context.Context, instruction string) (string, error) {
	return c.session.Complete(ctx, instruction)
}

// Reset clears the current content
func (c *Client) Reset() {
	c.session.Reset()
}
