package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddableImageDataURL(t *testing.T) {
	img := EmbeddableImage{Format: FormatJPEG, Payload: "QUJD"}
	assert.Equal(t, "data:image/jpeg;base64,QUJD", img.DataURL())
	assert.Equal(t, img.DataURL(), img.String())

	b, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), b)
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    EmbeddableImage
		wantErr bool
	}{
		{name: "jpeg", in: "data:image/jpeg;base64,QUJD", want: EmbeddableImage{Format: FormatJPEG, Payload: "QUJD"}},
		{name: "png", in: "data:image/png;base64,eHl6", want: EmbeddableImage{Format: FormatPNG, Payload: "eHl6"}},
		{name: "not a data url", in: "https://example.com/a.png", wantErr: true},
		{name: "not base64", in: "data:image/png,raw", wantErr: true},
		{name: "gif rejected", in: "data:image/gif;base64,AAAA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataURL(tt.in)
			if tt.wantErr {
				assert.True(t, IsType(err, ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractedContentSkippedErr(t *testing.T) {
	var nilContent *ExtractedContent
	assert.NoError(t, nilContent.SkippedErr())
	assert.Nil(t, nilContent.DataURLs())
	assert.False(t, nilContent.HasImages())

	c := &ExtractedContent{}
	assert.NoError(t, c.SkippedErr())

	cause := errors.New("bad huffman table")
	c.Skipped = []SkippedImage{{Page: 1, Index: 0, Err: cause}, {Page: 3, Index: 2, Err: errors.New("eof")}}
	err := c.SkippedErr()
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "page 1 image 0")
	assert.Contains(t, err.Error(), "page 3 image 2")
}

func TestPromptRequestHelpers(t *testing.T) {
	img := EmbeddableImage{Format: FormatPNG, Payload: "AA=="}
	textOnly := &PromptRequest{Instruction: "x", Blocks: []ContentBlock{{Type: BlockText, Text: "x"}}}
	assert.True(t, textOnly.IsTextOnly())
	assert.Empty(t, textOnly.Images())

	mixed := &PromptRequest{Instruction: "x", Blocks: []ContentBlock{
		{Type: BlockText, Text: "x"},
		{Type: BlockImageRef, Image: &img},
	}}
	assert.False(t, mixed.IsTextOnly())
	assert.Equal(t, []EmbeddableImage{img}, mixed.Images())
}

func TestIsType(t *testing.T) {
	base := DecodeError("bad image", errors.New("unexpected EOF"))
	wrapped := fmt.Errorf("page 2: %w", base)
	nested := GenerationError("stream failed", ConfigError("no key", nil))

	assert.True(t, IsType(base, ErrorTypeDecode))
	assert.True(t, IsType(wrapped, ErrorTypeDecode))
	assert.False(t, IsType(wrapped, ErrorTypeGeneration))
	assert.True(t, IsType(nested, ErrorTypeGeneration))
	assert.True(t, IsType(nested, ErrorTypeConfig))
	assert.False(t, IsType(nil, ErrorTypeDecode))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeDecode))
}

func TestDomainErrorMessage(t *testing.T) {
	assert.Equal(t, "[missing_prompt] instruction is empty", MissingPromptError("instruction is empty", nil).Error())
	assert.Equal(t, "[io] read failed: boom", IOError("read failed", errors.New("boom")).Error())
}
