// Package extractor pulls plain text out of PDF documents.
package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/mediassist/internal/types"
)

// Extractor reads every page of a PDF and concatenates the page text in
// page order. Pages whose text cannot be decoded contribute an empty string.
type Extractor struct{}

func New() Extractor {
	return Extractor{}
}

func (e Extractor) Extract(r io.ReaderAt, size int64) (string, error) {
	reader, pages, err := open(r, size)
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	for i := 1; i <= pages; i++ {
		textBuilder.WriteString(pageText(reader, i))
	}

	return textBuilder.String(), nil
}

func (e Extractor) ExtractBytes(data []byte) (string, error) {
	return e.Extract(bytes.NewReader(data), int64(len(data)))
}

func (e Extractor) ExtractFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return e.Extract(file, info.Size())
}

// open recovers from panics raised by the pdf package on malformed input.
func open(r io.ReaderAt, size int64) (reader *pdf.Reader, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reader, pages = nil, 0
			err = fmt.Errorf("%w: %v", types.ErrParse, rec)
		}
	}()

	reader, err = pdf.NewReader(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrParse, err)
	}

	return reader, reader.NumPage(), nil
}

func pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
