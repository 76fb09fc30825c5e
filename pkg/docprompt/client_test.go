package docprompt

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docprompt/internal/pdf/pdftest"
)

type echoStream struct {
	fragments []string
}

func (s *echoStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *echoStream) Close() error { return nil }

// recordingGenerator answers with canned fragments and keeps the requests
type recordingGenerator struct {
	fragments []string
	requests  []*PromptRequest
}

func (g *recordingGenerator) Stream(ctx context.Context, req *PromptRequest) (FragmentStream, error) {
	g.requests = append(g.requests, req)
	return &echoStream{fragments: append([]string(nil), g.fragments...)}, nil
}

func (g *recordingGenerator) Complete(ctx context.Context, req *PromptRequest) (string, error) {
	g.requests = append(g.requests, req)
	var out string
	for _, f := range g.fragments {
		out += f
	}
	return out, nil
}

func testConfig() *Config {
	return &Config{Provider: "openai", MaxTokens: 2048, MaxUploadBytes: 1 << 20, JPEGQuality: 85}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestClientEndToEnd(t *testing.T) {
	gen := &recordingGenerator{fragments: []string{"A ", "green ", "square."}}
	client, err := NewClientWithGenerator(testConfig(), gen)
	require.NoError(t, err)

	data := pdftest.Build([]pdftest.Page{
		{Text: "Hello", JPEGs: []pdftest.Image{{Data: jpegBytes(t, 600, 300), Width: 600, Height: 300}}},
	})
	content, err := client.Ingest(context.Background(), "figure.pdf", data)
	require.NoError(t, err)
	require.Len(t, content.Images, 1)
	assert.Equal(t, 512, content.Images[0].Width)
	assert.Equal(t, 256, content.Images[0].Height)

	seq, err := client.Generate(context.Background(), "What is shown?")
	require.NoError(t, err)
	var last string
	for partial, err := range seq {
		require.NoError(t, err)
		last = partial
	}
	assert.Equal(t, "A green square.", last)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	require.Len(t, req.Blocks, 2)
	assert.Equal(t, "What is shown?", req.Blocks[0].Text)
	assert.Equal(t, content.Images[0], *req.Blocks[1].Image)
}

func TestClientMissingPrompt(t *testing.T) {
	client, err := NewClientWithGenerator(testConfig(), &recordingGenerator{})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "")
	assert.True(t, IsType(err, ErrMissingPrompt))
}

func TestClientWithoutKeyFailsOnlyAtGeneration(t *testing.T) {
	client, err := NewClientWithConfig(testConfig())
	require.NoError(t, err)

	_, err = client.Ingest(context.Background(), "photo.jpg", jpegBytes(t, 10, 10))
	require.NoError(t, err)
	assert.True(t, client.Content().HasImages())

	_, err = client.Generate(context.Background(), "Describe")
	assert.True(t, IsType(err, ErrConfig))
}

func TestIngestFile(t *testing.T) {
	client, err := NewClientWithGenerator(testConfig(), &recordingGenerator{})
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = client.IngestFile(context.Background(), filepath.Join(dir, "notes.docx"))
	assert.True(t, IsType(err, ErrUnsupportedType))

	_, err = client.IngestFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.True(t, IsType(err, ErrValidation))

	path := filepath.Join(dir, "pic.jpeg")
	require.NoError(t, os.WriteFile(path, jpegBytes(t, 20, 10), 0o600))
	content, err := client.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, content.Images, 1)

	client.Reset()
	assert.False(t, client.Content().HasImages())
}
