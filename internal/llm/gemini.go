package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"

	"google.golang.org/genai"

	"github.com/spherical/docprompt/internal/domain"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates responses with the Gemini API
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	retry     *RetryConfig
	logger    *domain.Logger
}

// GeminiOptions configures a Gemini generator
type GeminiOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Retry     *RetryConfig

	// BaseURL overrides the API endpoint
	BaseURL    string
	HTTPClient *http.Client
}

// NewGemini creates a Gemini generator
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, domain.ConfigError("missing GEMINI_API_KEY", nil)
	}
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, domain.ConfigError("failed to create Gemini client", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retry := opts.Retry
	if retry == nil {
		retry = NoRetry()
	}

	return &Gemini{
		client:    c,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    domain.DefaultLogger.WithPrefix("gemini"),
	}, nil
}

// Model returns the model identifier sent with each request
func (g *Gemini) Model() string {
	return g.model
}

// Stream opens a streamed generation. The first chunk is read eagerly so
// that a refused call surfaces here rather than from Recv.
func (g *Gemini) Stream(ctx context.Context, req *domain.PromptRequest) (domain.FragmentStream, error) {
	contents, err := toGeminiContents(req)
	if err != nil {
		return nil, err
	}

	var s *geminiStream
	err = retryWithBackoff(ctx, g.retry, g.logger, func() error {
		seq := g.client.Models.GenerateContentStream(ctx, g.model, contents, g.generationConfig())
		next, stop := iter.Pull2(seq)
		first, callErr, ok := next()
		if callErr != nil {
			stop()
			return callErr
		}
		s = &geminiStream{next: next, stop: stop, pending: first, done: !ok}
		return nil
	})
	if err != nil {
		return nil, wrapAPIError("failed to open response stream", err)
	}

	g.logger.Debug("Opened stream with model %s (%d blocks)", g.model, len(req.Blocks))
	return s, nil
}

// Complete runs a generation call and returns the full text
func (g *Gemini) Complete(ctx context.Context, req *domain.PromptRequest) (string, error) {
	contents, err := toGeminiContents(req)
	if err != nil {
		return "", err
	}

	var res *genai.GenerateContentResponse
	err = retryWithBackoff(ctx, g.retry, g.logger, func() error {
		var callErr error
		res, callErr = g.client.Models.GenerateContent(ctx, g.model, contents, g.generationConfig())
		return callErr
	})
	if err != nil {
		return "", wrapAPIError("completion request failed", err)
	}
	if res == nil || len(res.Candidates) == 0 {
		return "", domain.GenerationError("response contained no candidates", nil)
	}
	return res.Text(), nil
}

func (g *Gemini) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)}
}

// toGeminiContents maps a PromptRequest onto one user turn with text and
// inline image parts in block order
func toGeminiContents(req *domain.PromptRequest) ([]*genai.Content, error) {
	if req == nil || len(req.Blocks) == 0 {
		return nil, domain.ValidationError("request has no content blocks", nil)
	}

	parts := make([]*genai.Part, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		switch b.Type {
		case domain.BlockText:
			parts = append(parts, &genai.Part{Text: b.Text})
		case domain.BlockImageRef:
			if b.Image == nil {
				return nil, domain.ValidationError("image block without image", nil)
			}
			data, err := b.Image.Bytes()
			if err != nil {
				return nil, domain.ValidationError("image payload is not valid base64", err)
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: b.Image.Format.MIMEType(), Data: data}})
		default:
			return nil, domain.ValidationError(fmt.Sprintf("unknown block type %q", b.Type), nil)
		}
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, nil
}

// geminiStream adapts the pushed response sequence to a pull stream
type geminiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending *genai.GenerateContentResponse
	done    bool
}

func (s *geminiStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		var resp *genai.GenerateContentResponse
		if s.pending != nil {
			resp, s.pending = s.pending, nil
		} else {
			var err error
			var ok bool
			resp, err, ok = s.next()
			if !ok {
				s.done = true
				return "", io.EOF
			}
			if err != nil {
				s.done = true
				return "", wrapAPIError("stream interrupted", err)
			}
		}

		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.done = true
	s.stop()
	return nil
}
