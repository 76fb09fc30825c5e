// Package session holds the state of one interactive document session: the
// most recently extracted content and the generator used to query it.
package session

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/spherical/docprompt/internal/aggregate"
	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/prompt"
)

// Extractor turns an uploaded file into ExtractedContent
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*domain.ExtractedContent, error)
}

// GeneratorFactory constructs the generator on first use
type GeneratorFactory func(ctx context.Context) (domain.Generator, error)

// Session owns the current content. Ingest and Generate may be called from
// different goroutines; each generation call gets its own aggregator.
type Session struct {
	id        string
	extractor Extractor
	factory   GeneratorFactory
	logger    *domain.Logger

	mu        sync.Mutex
	content   *domain.ExtractedContent
	filename  string
	generator domain.Generator
}

// New creates a session with no content
func New(extractor Extractor, factory GeneratorFactory) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		extractor: extractor,
		factory:   factory,
		logger:    domain.DefaultLogger.WithPrefix("session " + id[:8]),
		content:   &domain.ExtractedContent{},
	}
}

// WithGenerator returns a session that uses gen directly
func WithGenerator(extractor Extractor, gen domain.Generator) *Session {
	return New(extractor, func(context.Context) (domain.Generator, error) { return gen, nil })
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Ingest extracts data and replaces the current content wholesale. On
// failure the content becomes empty and the error is returned.
func (s *Session) Ingest(ctx context.Context, filename string, data []byte) (*domain.ExtractedContent, error) {
	content, err := s.extractor.Extract(ctx, filename, data)
	if content == nil || err != nil {
		content = &domain.ExtractedContent{}
	}

	s.mu.Lock()
	s.content = content
	s.filename = filename
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Ingest of %s failed, content cleared: %v", filename, err)
		return content, err
	}
	if skipped := content.SkippedErr(); skipped != nil {
		s.logger.Warn("Ingested %s with skipped images: %v", filename, skipped)
	}
	s.logger.Info("Ingested %s: %d pages, %d images", filename, content.PageCount, len(content.Images))
	return content, nil
}

// Content returns the current content and the name it was ingested from
func (s *Session) Content() (*domain.ExtractedContent, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, s.filename
}

// Reset drops the current content
func (s *Session) Reset() {
	s.mu.Lock()
	s.content = &domain.ExtractedContent{}
	s.filename = ""
	s.mu.Unlock()
}

// Request builds the request the next Generate call would send
func (s *Session) Request(instruction string) (*domain.PromptRequest, error) {
	content, _ := s.Content()
	return prompt.BuildFromContent(content, instruction)
}

// Generate sends instruction with the current content and returns the
// growing response. Each yielded value is the whole response so far. A
// mid-stream failure is yielded once with the partial response. Errors
// that prevent the call from starting are returned directly.
func (s *Session) Generate(ctx context.Context, instruction string) (iter.Seq2[string, error], error) {
	req, err := s.Request(instruction)
	if err != nil {
		return nil, err
	}

	gen, err := s.generatorFor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting generation with %d blocks", len(req.Blocks))
	stream, err := gen.Stream(ctx, req)
	if err != nil {
		s.logger.Error("Generation failed to start: %v", err)
		return nil, err
	}

	agg := aggregate.New()
	seq := agg.Consume(stream)
	return func(yield func(string, error) bool) {
		defer func() {
			s.logger.Info("Generation finished after %d fragments", agg.Fragments())
		}()
		for partial, err := range seq {
			if err != nil {
				s.logger.Error("Generation interrupted: %v", err)
			}
			if !yield(partial, err) {
				return
			}
		}
	}, nil
}

// Complete sends instruction with the current content and returns the
// whole response once it is done
func (s *Session) Complete(ctx context.Context, instruction string) (string, error) {
	req, err := s.Request(instruction)
	if err != nil {
		return "", err
	}
	gen, err := s.generatorFor(ctx)
	if err != nil {
		return "", err
	}
	return gen.Complete(ctx, req)
}

func (s *Session) generatorFor(ctx context.Context) (domain.Generator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil {
		return s.generator, nil
	}
	if s.factory == nil {
		return nil, domain.ConfigError("no generation service configured", nil)
	}
	gen, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.generator = gen
	return gen, nil
}
