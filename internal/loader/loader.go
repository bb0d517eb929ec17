// Package loader extracts plain text from source documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupportedFormat is returned for documents that are neither PDF nor plain text.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SampleSize is the prefix length used for encoding detection.
const SampleSize = 10000

// Format enumerates supported document formats.
type Format string

const (
	FormatUnknown Format = ""
	FormatPDF     Format = "pdf"
	FormatText    Format = "text"
)

// Document is the extracted text of a source file.
type Document struct {
	Path     string
	Format   Format
	Encoding string
	Pages    int
	Text     string
}

// DetectFormat infers a document format from the path's extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".txt", ".text", ".md", ".markdown", ".log":
		return FormatText
	default:
		return FormatUnknown
	}
}

// Load reads the document at path and returns its full text.
func Load(ctx context.Context, path string) (Document, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	switch format {
	case FormatPDF:
		text, pages, err := loadPDF(path)
		if err != nil {
			return Document{}, err
		}
		return Document{Path: path, Format: format, Pages: pages, Text: text}, nil
	default:
		text, enc, err := loadText(path)
		if err != nil {
			return Document{}, err
		}
		return Document{Path: path, Format: format, Encoding: enc, Pages: 1, Text: text}, nil
	}
}

// loadPDF extracts text page by page and joins the pages with newlines.
func loadPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract pdf page %d: %w", pageNum, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), numPages, nil
}

func loadText(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	sample := data
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	name := DetectEncoding(sample)
	return decode(data, name), name, nil
}

// DetectEncoding guesses the charset of sample. It falls back to UTF-8.
func DetectEncoding(sample []byte) string {
	if len(sample) == 0 {
		return "UTF-8"
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil || res.Charset == "" {
		return "UTF-8"
	}
	return res.Charset
}

// decode converts data from the named charset to UTF-8. Undecodable sequences become U+FFFD.
func decode(data []byte, charset string) string {
	enc := lookupEncoding(charset)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		out = data
	}
	text := strings.ToValidUTF8(string(out), "\uFFFD")
	return strings.TrimPrefix(text, "\uFEFF")
}

func lookupEncoding(charset string) encoding.Encoding {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "gb-18030" {
		name = "gb18030"
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	return unicode.UTF8
}
