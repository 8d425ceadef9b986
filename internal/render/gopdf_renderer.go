package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"
)

const (
	pageMarginPt  = 40.0
	lineHeightPt  = 14.0
	bodyFontSize  = 11
	titleFontSize = 16
)

var pageWidthPt, pageHeightPt = gopdf.PageSizeA4.W, gopdf.PageSizeA4.H

// GopdfConfig configures GopdfRenderer. FontPath must point to a TTF font
// file; gopdf has no built-in fonts and cannot render text without one.
type GopdfConfig struct {
	FontPath string
	FontName string
}

// GopdfRenderer is the default concrete Renderer, producing a
// best-effort paginated text rendering of the wrapped HTML's visible
// content plus the two logo URLs as captions. It is not a layout
// engine: production deployments needing faithful HTML/CSS rendering
// should swap in a headless-browser or wkhtmltopdf-backed Renderer
// behind the same interface.
type GopdfRenderer struct {
	fontPath string
	fontName string
	logger   *zap.Logger
}

// NewGopdfRenderer builds a GopdfRenderer. logger may be nil.
func NewGopdfRenderer(cfg GopdfConfig, logger *zap.Logger) *GopdfRenderer {
	name := cfg.FontName
	if name == "" {
		name = "body"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GopdfRenderer{fontPath: cfg.FontPath, fontName: name, logger: logger}
}

// Render wraps html in the branded header and renders its visible text
// to a paginated PDF.
func (r *GopdfRenderer) Render(ctx context.Context, html string, header HeaderContext) ([]byte, error) {
	wrapped := WrapHTML(html, header)
	text := VisibleText(wrapped)

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFont(r.fontName, r.fontPath); err != nil {
		return nil, fmt.Errorf("%w: load font: %v", ErrRenderFailed, err)
	}

	pdf.AddPage()
	if err := pdf.SetFont(r.fontName, "", titleFontSize); err != nil {
		return nil, fmt.Errorf("%w: set title font: %v", ErrRenderFailed, err)
	}

	caption := fmt.Sprintf("Powered by: %s    Organization: %s", header.ParentLogoURL, header.OrganizationLogoURL)
	r.writeLine(&pdf, caption)

	if err := pdf.SetFont(r.fontName, "", bodyFontSize); err != nil {
		return nil, fmt.Errorf("%w: set body font: %v", ErrRenderFailed, err)
	}

	usableWidth := pageWidthPt - 2*pageMarginPt

	for _, paragraph := range strings.Split(text, "\n") {
		for _, line := range wrapToWidth(&pdf, paragraph, usableWidth) {
			r.ensureRoom(&pdf)
			r.writeLine(&pdf, line)
		}
	}

	return pdf.GetBytesPdf(), nil
}

func (r *GopdfRenderer) writeLine(pdf *gopdf.GoPdf, line string) {
	pdf.SetX(pageMarginPt)
	_ = pdf.Cell(nil, line)
	pdf.Br(lineHeightPt)
}

func (r *GopdfRenderer) ensureRoom(pdf *gopdf.GoPdf) {
	if pdf.GetY() > pageHeightPt-pageMarginPt-lineHeightPt {
		pdf.AddPage()
	}
}

// wrapToWidth greedily splits a line of text into sublines that fit
// within maxWidth points at the currently selected font.
func wrapToWidth(pdf *gopdf.GoPdf, line string, maxWidth float64) []string {
	if line == "" {
		return []string{""}
	}

	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}

	var out []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		width, err := pdf.MeasureTextWidth(candidate)
		if err == nil && width > maxWidth {
			out = append(out, current)
			current = word
			continue
		}
		current = candidate
	}
	out = append(out, current)
	return out
}
