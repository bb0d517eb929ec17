package writer

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"doc-distill/internal/fonts"

	"github.com/go-pdf/fpdf"
)

// PDFOptions controls summary document layout. Sizes are in millimetres except FontSize (points).
type PDFOptions struct {
	FontPath   string
	FontSize   float64
	LineHeight float64
	Margin     float64
}

// DefaultPDFOptions returns A4 settings with a 15mm margin.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{FontSize: 11, LineHeight: 10, Margin: 15}
}

// WriteSummaryPDF renders text into a paginated A4 document at path with automatic
// page breaks. A Unicode TrueType font is embedded when one is configured or found.
// A configured font that does not exist is an error (fonts.ErrNotFound). With no font
// configured and none installed, the core Helvetica font is used and unsupported
// characters are dropped.
func WriteSummaryPDF(path, text string, opts PDFOptions, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	d := DefaultPDFOptions()
	if opts.FontSize <= 0 {
		opts.FontSize = d.FontSize
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = d.LineHeight
	}
	if opts.Margin <= 0 {
		opts.Margin = d.Margin
	}
	font, err := fonts.Resolve(opts.FontPath)
	if err != nil {
		return fmt.Errorf("pdf font: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(opts.Margin, opts.Margin, opts.Margin)
	pdf.SetAutoPageBreak(true, opts.Margin)
	pdf.AddPage()

	body := text
	if font != "" {
		pdf.AddUTF8Font("body", "", font)
		pdf.SetFont("body", "", opts.FontSize)
	} else {
		log.Warn("no unicode font installed; falling back to Helvetica")
		pdf.SetFont("Helvetica", "", opts.FontSize)
		body = pdf.UnicodeTranslatorFromDescriptor("")(text)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load pdf font: %w", err)
	}

	pdf.MultiCell(0, opts.LineHeight, body, "", "", false)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write summary pdf: %w", err)
	}
	return nil
}
