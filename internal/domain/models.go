package domain

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// SourceType is the kind of uploaded document, derived from its filename
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceJPEG SourceType = "jpeg"
	SourcePNG  SourceType = "png"
)

// ImageFormat is the transport encoding of a normalized image
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// MIMEType returns the media type for the format.
func (f ImageFormat) MIMEType() string {
	return "image/" + string(f)
}

const dataURLPrefix = "data:image/"

// EmbeddableImage is a normalized image ready for inclusion in a request
type EmbeddableImage struct {
	Format  ImageFormat
	Payload string // standard base64 of the encoded image bytes
	Width   int
	Height  int
}

// DataURL renders the image as data:image/<format>;base64,<payload>.
func (i EmbeddableImage) DataURL() string {
	return dataURLPrefix + string(i.Format) + ";base64," + i.Payload
}

func (i EmbeddableImage) String() string {
	return i.DataURL()
}

// Bytes decodes the payload back to the encoded image bytes.
func (i EmbeddableImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Payload)
}

// ParseDataURL parses a data:image/<jpeg|png>;base64,<payload> string.
func ParseDataURL(s string) (EmbeddableImage, error) {
	rest, ok := strings.CutPrefix(s, dataURLPrefix)
	if !ok {
		return EmbeddableImage{}, ValidationError("not an image data URL", nil)
	}
	format, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return EmbeddableImage{}, ValidationError("data URL is not base64 encoded", nil)
	}
	f := ImageFormat(format)
	if f != FormatJPEG && f != FormatPNG {
		return EmbeddableImage{}, ValidationError(fmt.Sprintf("unsupported image format %q", format), nil)
	}
	return EmbeddableImage{Format: f, Payload: payload}, nil
}

// RawImage is an embedded image as reported by a document container
type RawImage struct {
	Page     int    // 1-based page number
	Index    int    // position within the page, in container order
	Name     string // resource name, e.g. Im1
	FileType string // container's view of the encoding, e.g. jpg, png, tif
	Data     []byte
}

// SkippedImage records an embedded image that could not be normalized
type SkippedImage struct {
	Page  int
	Index int
	Err   error
}

// ExtractedContent is the text and images pulled from one uploaded document.
// It is built once per ingestion and not modified afterwards.
type ExtractedContent struct {
	Source    SourceType
	Text      string
	Images    []EmbeddableImage
	PageCount int
	Skipped   []SkippedImage
}

// DataURLs returns the images as data URL strings, in extraction order.
func (c *ExtractedContent) DataURLs() []string {
	if c == nil {
		return nil
	}
	urls := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		urls = append(urls, img.DataURL())
	}
	return urls
}

// HasImages reports whether any image was extracted.
func (c *ExtractedContent) HasImages() bool {
	return c != nil && len(c.Images) > 0
}

// SkippedErr aggregates the causes of all skipped images, or nil.
func (c *ExtractedContent) SkippedErr() error {
	if c == nil {
		return nil
	}
	var result *multierror.Error
	for _, s := range c.Skipped {
		result = multierror.Append(result, fmt.Errorf("page %d image %d: %w", s.Page, s.Index, s.Err))
	}
	return result.ErrorOrNil()
}

// BlockType identifies a request content block
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockImageRef BlockType = "image_url"
)

// ContentBlock is one element of a multimodal request
type ContentBlock struct {
	Type  BlockType
	Text  string
	Image *EmbeddableImage
}

// PromptRequest is a generation request built from extracted content and an
// instruction. Blocks holds either a single text block or the instruction
// followed by image references in extraction order.
type PromptRequest struct {
	Instruction string
	Blocks      []ContentBlock
}

// IsTextOnly reports whether the request is a single text block.
func (r *PromptRequest) IsTextOnly() bool {
	return len(r.Blocks) == 1 && r.Blocks[0].Type == BlockText
}

// Images returns the referenced images in request order.
func (r *PromptRequest) Images() []EmbeddableImage {
	var out []EmbeddableImage
	for _, b := range r.Blocks {
		if b.Type == BlockImageRef && b.Image != nil {
			out = append(out, *b.Image)
		}
	}
	return out
}
