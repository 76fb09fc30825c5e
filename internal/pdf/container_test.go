package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/pdf/pdftest"
)

func testJPEG(t *testing.T, w, h int) pdftest.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return pdftest.Image{Data: buf.Bytes(), Width: w, Height: h}
}

func TestContainerOpenFailures(t *testing.T) {
	c := NewContainer()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("this is not a pdf document at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := c.Open(tt.data)
			assert.Nil(t, doc)
			assert.True(t, domain.IsType(err, domain.ErrorTypeDocumentOpen), "got %v", err)
		})
	}
}

func TestContainerTextLayer(t *testing.T) {
	data := pdftest.Build([]pdftest.Page{
		{Text: ""},
		{Text: "Hello"},
		{Text: "World"},
	})

	doc, err := NewContainer().Open(data)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 3, doc.NumPage())

	text, err := doc.Text(1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))

	text, err = doc.Text(2)
	require.NoError(t, err)
	assert.Equal(t, "Hello", strings.TrimSpace(text))

	text, err = doc.Text(3)
	require.NoError(t, err)
	assert.Equal(t, "World", strings.TrimSpace(text))

	_, err = doc.Text(0)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
	_, err = doc.Text(4)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestContainerImagesInPageOrder(t *testing.T) {
	first := testJPEG(t, 64, 32)
	second := testJPEG(t, 16, 48)
	third := testJPEG(t, 40, 40)

	data := pdftest.Build([]pdftest.Page{
		{Text: "one", JPEGs: []pdftest.Image{first, second}},
		{Text: "two"},
		{Text: "three", JPEGs: []pdftest.Image{third}},
	})

	doc, err := NewContainer().Open(data)
	require.NoError(t, err)
	defer doc.Close()

	page1, err := doc.Images(1)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assertJPEGSize(t, page1[0].Data, 64, 32)
	assertJPEGSize(t, page1[1].Data, 16, 48)
	assert.Equal(t, 0, page1[0].Index)
	assert.Equal(t, 1, page1[1].Index)
	assert.Equal(t, 1, page1[0].Page)

	page2, err := doc.Images(2)
	require.NoError(t, err)
	assert.Empty(t, page2)

	page3, err := doc.Images(3)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assertJPEGSize(t, page3[0].Data, 40, 40)
}

func TestContainerImagesOrderedByObjectNumber(t *testing.T) {
	wide := testJPEG(t, 64, 32)
	tall := testJPEG(t, 16, 48)

	// Im0 is wide but gets the higher object number
	data := pdftest.Build([]pdftest.Page{
		{Text: "one", JPEGs: []pdftest.Image{wide, tall}, ReverseObjects: true},
	})

	doc, err := NewContainer().Open(data)
	require.NoError(t, err)
	defer doc.Close()

	images, err := doc.Images(1)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assertJPEGSize(t, images[0].Data, 16, 48)
	assertJPEGSize(t, images[1].Data, 64, 32)
	assert.Equal(t, 0, images[0].Index)
	assert.Equal(t, 1, images[1].Index)
}

func assertJPEGSize(t *testing.T, data []byte, w, h int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, w, cfg.Width)
	assert.Equal(t, h, cfg.Height)
}

func TestContainerCloseIsIdempotent(t *testing.T) {
	doc, err := NewContainer().Open(pdftest.Build([]pdftest.Page{{Text: "x"}}))
	require.NoError(t, err)
	assert.NoError(t, doc.Close())
	assert.NoError(t, doc.Close())
}
