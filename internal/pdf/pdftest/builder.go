// Package pdftest builds small in-memory PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Page describes one page of a generated document
type Page struct {
	// Text is drawn with Helvetica; empty means the page has no text layer
	Text string

	// JPEGs are embedded as DCTDecode image XObjects in order. The bytes
	// are written verbatim, so corrupt data yields a corrupt image stream.
	JPEGs []Image

	// ReverseObjects numbers the image objects in descending order, so the
	// first XObject in the resource dictionary has the highest object number
	ReverseObjects bool
}

// Image is a JPEG stream with the dimensions declared in its dictionary
type Image struct {
	Data          []byte
	Width, Height int
}

// Build renders pages into a complete PDF file with a valid xref table
func Build(pages []Page) []byte {
	w := &writer{}
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1 catalog, 2 page tree, 3 font; page objects follow
	next := 4
	type layout struct {
		page, content int
		images        []int
	}
	layouts := make([]layout, len(pages))
	for i, p := range pages {
		l := layout{page: next, content: next + 1}
		next += 2
		for range p.JPEGs {
			l.images = append(l.images, next)
			next++
		}
		if p.ReverseObjects {
			slices.Reverse(l.images)
		}
		layouts[i] = l
	}
	w.offsets = make([]int, next)

	kids := make([]string, len(layouts))
	for i, l := range layouts {
		kids[i] = fmt.Sprintf("%d 0 R", l.page)
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	w.object(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		l := layouts[i]

		var xobjects []string
		var content strings.Builder
		for j, objNr := range l.images {
			name := fmt.Sprintf("Im%d", j)
			xobjects = append(xobjects, fmt.Sprintf("/%s %d 0 R", name, objNr))
			fmt.Fprintf(&content, "q 200 0 0 100 72 %d cm /%s Do Q\n", 500-j*120, name)
		}
		if p.Text != "" {
			fmt.Fprintf(&content, "BT /F1 24 Tf 72 720 Td (%s) Tj ET\n", escape(p.Text))
		}

		resources := "/Font << /F1 3 0 R >>"
		if len(xobjects) > 0 {
			resources += " /XObject << " + strings.Join(xobjects, " ") + " >>"
		}

		w.object(l.page, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents %d 0 R >>",
			resources, l.content))
		w.stream(l.content, "", []byte(content.String()))

		for j, objNr := range l.images {
			img := p.JPEGs[j]
			dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode",
				img.Width, img.Height)
			w.stream(objNr, dict, img.Data)
		}
	}

	return w.finish(next)
}

type writer struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *writer) object(nr int, body string) {
	w.offsets[nr] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", nr, body)
}

func (w *writer) stream(nr int, dict string, data []byte) {
	w.offsets[nr] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", nr, dict, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *writer) finish(size int) []byte {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f \n")
	for nr := 1; nr < size; nr++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[nr])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
	return w.buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
