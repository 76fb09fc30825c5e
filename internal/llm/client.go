package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spherical/docprompt/internal/domain"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 2048
)

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	retry     *RetryConfig
	logger    *domain.Logger
}

// ClientOptions configures an OpenAI-compatible client
type ClientOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Retry     *RetryConfig

	// HTTPClient overrides the transport; nil means http.DefaultClient
	HTTPClient *http.Client
}

// NewClient creates a new chat completions client
func NewClient(opts ClientOptions) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if strings.Contains(cfg.BaseURL, "openrouter.ai") {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &attributionTransport{base: base}
		httpClient = &wrapped
	}
	cfg.HTTPClient = httpClient

	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retry := opts.Retry
	if retry == nil {
		retry = NoRetry()
	}

	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    domain.DefaultLogger.WithPrefix("llm"),
	}
}

// Model returns the model identifier sent with each request
func (c *Client) Model() string {
	return c.model
}

// Stream opens a streamed completion for req
func (c *Client) Stream(ctx context.Context, req *domain.PromptRequest) (domain.FragmentStream, error) {
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	var stream *openai.ChatCompletionStream
	err = retryWithBackoff(ctx, c.retry, c.logger, func() error {
		var callErr error
		stream, callErr = c.api.CreateChatCompletionStream(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return nil, wrapAPIError("failed to open response stream", err)
	}

	c.logger.Debug("Opened stream with model %s (%d blocks)", c.model, len(req.Blocks))
	return &chatStream{stream: stream}, nil
}

// Complete runs a non-streamed completion and returns the full text
func (c *Client) Complete(ctx context.Context, req *domain.PromptRequest) (string, error) {
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return "", err
	}

	var resp openai.ChatCompletionResponse
	err = retryWithBackoff(ctx, c.retry, c.logger, func() error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return "", wrapAPIError("completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.GenerationError("response contained no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildRequest maps a PromptRequest onto a single user message. An
// instruction-only request is sent as plain content; anything with images
// uses text and image_url parts.
func (c *Client) buildRequest(req *domain.PromptRequest) (openai.ChatCompletionRequest, error) {
	if req == nil || len(req.Blocks) == 0 {
		return openai.ChatCompletionRequest{}, domain.ValidationError("request has no content blocks", nil)
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.IsTextOnly() {
		msg.Content = req.Blocks[0].Text
	} else {
		parts := make([]openai.ChatMessagePart, 0, len(req.Blocks))
		for _, b := range req.Blocks {
			switch b.Type {
			case domain.BlockText:
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: b.Text,
				})
			case domain.BlockImageRef:
				if b.Image == nil {
					return openai.ChatCompletionRequest{}, domain.ValidationError("image block without image", nil)
				}
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: b.Image.DataURL()},
				})
			default:
				return openai.ChatCompletionRequest{}, domain.ValidationError(fmt.Sprintf("unknown block type %q", b.Type), nil)
			}
		}
		msg.MultiContent = parts
	}

	return openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{msg},
		MaxTokens: c.maxTokens,
	}, nil
}

// chatStream adapts a chat completion stream to domain.FragmentStream
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", wrapAPIError("stream interrupted", err)
		}
		// Role-only and usage chunks carry no text
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
}

func (s *chatStream) Close() error {
	s.stream.Close()
	return nil
}

// wrapAPIError turns a provider error into a GenerationError that carries
// the HTTP status and message when there is one.
func wrapAPIError(message string, err error) error {
	if domain.IsType(err, domain.ErrorTypeGeneration) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.GenerationError(message, err)
	}
	if status := statusCode(err); status != 0 {
		return domain.GenerationError(fmt.Sprintf("%s: API returned status %d", message, status), err)
	}
	return domain.GenerationError(message, err)
}

// attributionTransport adds the headers OpenRouter uses to attribute traffic
type attributionTransport struct {
	base http.RoundTripper
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", "https://github.com/spherical/docprompt")
	req.Header.Set("X-Title", "docprompt")
	return t.base.RoundTrip(req)
}
