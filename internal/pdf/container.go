package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/docprompt/internal/domain"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home
	api.DisableConfigDir()
}

// Container opens PDF documents with MuPDF (go-fitz) for the text layer
// and pdfcpu for embedded raster images.
type Container struct {
	logger *domain.Logger
}

// NewContainer creates a new PDF container backend
func NewContainer() *Container {
	return &Container{
		logger: domain.DefaultLogger.WithPrefix("pdf"),
	}
}

// Open parses data as a PDF document
func (c *Container) Open(data []byte) (domain.Document, error) {
	if len(data) == 0 {
		return nil, domain.DocumentOpenError("document is empty", nil)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if err == fitz.ErrNeedsPassword {
			return nil, domain.DocumentOpenError("document is password protected", err)
		}
		return nil, domain.DocumentOpenError("failed to open PDF", err)
	}

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		doc.Close()
		return nil, domain.DocumentOpenError("PDF has no pages", nil)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &document{
		data:      data,
		fz:        doc,
		pageCount: pageCount,
		conf:      conf,
		logger:    c.logger,
	}, nil
}

type document struct {
	data      []byte
	fz        *fitz.Document
	pageCount int
	conf      *model.Configuration
	logger    *domain.Logger

	loaded  bool
	images  map[int][]domain.RawImage
	bulkErr error

	fallback *lpdf.Reader
}

func (d *document) NumPage() int {
	return d.pageCount
}

func (d *document) checkPage(page int) error {
	if page < 1 || page > d.pageCount {
		return domain.ValidationError(fmt.Sprintf("page %d out of range 1-%d", page, d.pageCount), nil)
	}
	return nil
}

// Text returns the MuPDF text layer of a page, falling back to the pure Go
// reader when MuPDF cannot extract it.
func (d *document) Text(page int) (string, error) {
	if err := d.checkPage(page); err != nil {
		return "", err
	}

	text, err := d.fz.Text(page - 1)
	if err == nil {
		return text, nil
	}

	d.logger.Debug("MuPDF text extraction failed on page %d, trying fallback: %v", page, err)
	fallbackText, fbErr := d.fallbackText(page)
	if fbErr != nil {
		return "", fmt.Errorf("page %d text layer: %w", page, err)
	}
	return fallbackText, nil
}

func (d *document) fallbackText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text fallback panicked: %v", r)
		}
	}()

	if d.fallback == nil {
		r, err := lpdf.NewReader(bytes.NewReader(d.data), int64(len(d.data)))
		if err != nil {
			return "", err
		}
		d.fallback = r
	}

	p := d.fallback.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// Images returns the embedded images placed on a page, ordered by object number
func (d *document) Images(page int) ([]domain.RawImage, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}

	if !d.loaded {
		d.loaded = true
		d.images, d.bulkErr = d.extractImages(nil)
		if d.bulkErr != nil {
			d.logger.Warn("Bulk image extraction failed, reading pages individually: %v", d.bulkErr)
		}
	}

	if d.bulkErr == nil {
		return d.images[page], nil
	}

	byPage, err := d.extractImages([]string{strconv.Itoa(page)})
	if err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("failed to read images on page %d", page), err)
	}
	return byPage[page], nil
}

type pageImage struct {
	objNr int
	raw   domain.RawImage
}

// extractImages reads embedded images for the selected pages (nil means all)
// and groups them by page number.
func (d *document) extractImages(selectedPages []string) (result map[int][]domain.RawImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("image extraction panicked: %v", r)
		}
	}()

	pages, err := api.ExtractImagesRaw(bytes.NewReader(d.data), selectedPages, d.conf)
	if err != nil {
		return nil, err
	}

	defaultPage := 0
	if len(selectedPages) == 1 {
		defaultPage, _ = strconv.Atoi(selectedPages[0])
	}

	grouped := make(map[int][]pageImage)
	for _, images := range pages {
		for _, img := range images {
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img.Reader)
			if err != nil {
				return nil, fmt.Errorf("reading image %s: %w", img.Name, err)
			}
			pageNr := img.PageNr
			if pageNr == 0 {
				pageNr = defaultPage
			}
			grouped[pageNr] = append(grouped[pageNr], pageImage{
				objNr: img.ObjNr,
				raw: domain.RawImage{
					Page:     pageNr,
					Name:     img.Name,
					FileType: img.FileType,
					Data:     data,
				},
			})
		}
	}

	result = make(map[int][]domain.RawImage, len(grouped))
	for pageNr, imgs := range grouped {
		sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].objNr < imgs[j].objNr })
		out := make([]domain.RawImage, len(imgs))
		for i, img := range imgs {
			img.raw.Index = i
			out[i] = img.raw
		}
		result[pageNr] = out
	}
	return result, nil
}

func (d *document) Close() error {
	if d.fz == nil {
		return nil
	}
	err := d.fz.Close()
	d.fz = nil
	d.fallback = nil
	return err
}
