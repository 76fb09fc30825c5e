package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docprompt/internal/config"
	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/pdf/pdftest"
	"github.com/spherical/docprompt/pkg/docprompt"
)

type scriptedStream struct {
	fragments []string
	failErr   error
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		if s.failErr != nil {
			return "", s.failErr
		}
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedGenerator struct {
	fragments []string
	failErr   error
}

func (g *scriptedGenerator) Stream(ctx context.Context, req *domain.PromptRequest) (domain.FragmentStream, error) {
	return &scriptedStream{fragments: append([]string(nil), g.fragments...), failErr: g.failErr}, nil
}

func (g *scriptedGenerator) Complete(ctx context.Context, req *domain.PromptRequest) (string, error) {
	var out string
	for _, f := range g.fragments {
		out += f
	}
	return out, g.failErr
}

func run(t *testing.T, gen domain.Generator, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, gen, args...)
	return out, err
}

func runWithStderr(t *testing.T, gen domain.Generator, args ...string) (string, string, error) {
	t.Helper()
	a := &app{newClient: func(cfg *config.Config) (*docprompt.Client, error) {
		return docprompt.NewClientWithGenerator(cfg, gen)
	}}
	root := a.rootCmd()

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o600))

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color", "--env-file", envFile}, args...))
	err := root.ExecuteContext(context.Background())
	if err != nil {
		a.reportError(&errOut, err)
	}
	return out.String(), errOut.String(), err
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestAskStreamsAnswer(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"The ", "image ", "shows a cat."}}
	out, err := run(t, gen, "ask", writePNG(t, 40, 40), "-p", "What is this?")
	require.NoError(t, err)
	assert.Equal(t, "The image shows a cat.\n", out)
}

func TestAskKeepsPartialOnFailure(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"Half an "}, failErr: errors.New("reset")}
	out, err := run(t, gen, "ask", "-p", "Tell me a joke")
	assert.True(t, domain.IsType(err, domain.ErrorTypeGeneration))
	assert.Equal(t, "Half an \n", out)
}

func TestAskRequiresPrompt(t *testing.T) {
	_, err := run(t, &scriptedGenerator{}, "ask")
	assert.True(t, domain.IsType(err, domain.ErrorTypeMissingPrompt))
}

func TestAskHTML(t *testing.T) {
	gen := &scriptedGenerator{fragments: []string{"# Title\n\n", "some *text*"}}
	out, err := run(t, gen, "ask", "--html", "-p", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>text</em>")
}

func TestExtractCommand(t *testing.T) {
	out, err := run(t, &scriptedGenerator{}, "extract", "--images", writePNG(t, 1024, 512))
	require.NoError(t, err)
	assert.Contains(t, out, "(no text layer)")
	assert.Contains(t, out, "1 images")
	assert.Contains(t, out, "512x256 data:image/png;base64,")
}

func TestExtractUnsupported(t *testing.T) {
	_, stderr, err := runWithStderr(t, &scriptedGenerator{}, "extract", "slides.pptx")
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnsupportedType))
	assert.Contains(t, stderr, "✗ Error: ")
	assert.Contains(t, stderr, "unsupported file type .pptx")
}

func TestExtractReportsSkippedImagesWhenVerbose(t *testing.T) {
	data := pdftest.Build([]pdftest.Page{
		{Text: "Hello", JPEGs: []pdftest.Image{{Data: []byte("\xff\xd8 broken"), Width: 20, Height: 20}}},
	})
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, stderr, err := runWithStderr(t, &scriptedGenerator{}, "extract", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "✓ Extracted 1 pages")
	assert.Contains(t, stderr, "(1 skipped)")
	assert.NotContains(t, stderr, "Skipped images")

	_, stderr, err = runWithStderr(t, &scriptedGenerator{}, "-v", "extract", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "⚠ Skipped images: 1 error occurred")
	assert.Contains(t, stderr, "page 1 image")
}

func TestNamedEnvFileMustExist(t *testing.T) {
	a := newApp()
	root := a.rootCmd()
	var errOut bytes.Buffer
	root.SetOut(io.Discard)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--no-color", "--env-file", filepath.Join(t.TempDir(), "absent.env"), "extract", "x.pdf"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))

	a.reportError(&errOut, err)
	assert.Contains(t, errOut.String(), "✗ Error: ")
}

func TestIncrementalWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &incrementalWriter{out: &buf}
	for _, s := range []string{"a", "ab", "ab", "abc"} {
		require.NoError(t, w.Update(s))
	}
	assert.Equal(t, "abc", buf.String())
}
