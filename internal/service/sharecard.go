package service

// This file renders the PNG share card for a prayer list or dua.

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/getdoa/getdoa/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ShareCardSize     = 1080
	shareCardScale    = 4
	shareCardMargin   = 12
	shareCardLeading  = 4
	maxShareTitleLen  = 80
	maxShareBodyLen   = 600
	maxShareFooterLen = 60
)

var (
	shareCardBackground = color.NRGBA{R: 0x0f, G: 0x3d, B: 0x3e, A: 0xff}
	shareCardText       = color.NRGBA{R: 0xf5, G: 0xf1, B: 0xe6, A: 0xff}
	shareCardAccent     = color.NRGBA{R: 0xd4, G: 0xaf, B: 0x37, A: 0xff}
)

// ShareCardParams is the content of one share card.
type ShareCardParams struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
	// Background is an optional encoded image placed behind the text.
	Background []byte `json:"-"`
}

// Validate checks required fields and lengths.
func (p ShareCardParams) Validate() error {
	ve := &domain.ValidationError{Op: "share_card.validate"}
	if strings.TrimSpace(p.Body) == "" {
		ve.Add("body", "is required")
	}
	if n := len([]rune(p.Body)); n > maxShareBodyLen {
		ve.Add("body", fmt.Sprintf("must be at most %d characters", maxShareBodyLen))
	}
	if n := len([]rune(p.Title)); n > maxShareTitleLen {
		ve.Add("title", fmt.Sprintf("must be at most %d characters", maxShareTitleLen))
	}
	if n := len([]rune(p.Footer)); n > maxShareFooterLen {
		ve.Add("footer", fmt.Sprintf("must be at most %d characters", maxShareFooterLen))
	}
	return ve.OrNil()
}

// ShareCardRenderer turns card content into an encoded image.
type ShareCardRenderer interface {
	// Render returns the PNG bytes of the card.
	Render(p ShareCardParams) ([]byte, error)
}

type imagingRenderer struct {
	size int
}

// NewShareCardRenderer returns a renderer producing square PNG cards of
// ShareCardSize pixels.
func NewShareCardRenderer() ShareCardRenderer {
	return &imagingRenderer{size: ShareCardSize}
}

// Render draws the text with the 7x13 bitmap face on a canvas a quarter of
// the output size and upscales it with nearest-neighbour so glyphs stay sharp.
func (r *imagingRenderer) Render(p ShareCardParams) ([]byte, error) {
	canvas := imaging.New(r.size, r.size, shareCardBackground)

	if len(p.Background) > 0 {
		bg, err := imaging.Decode(bytes.NewReader(p.Background), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to decode background: %w", err)
		}
		bg = imaging.Fill(bg, r.size, r.size, imaging.Center, imaging.Lanczos)
		bg = imaging.AdjustBrightness(bg, -45)
		bg = imaging.Blur(bg, 2)
		canvas = imaging.Paste(canvas, bg, image.Pt(0, 0))
	}

	small := r.size / shareCardScale
	layer := image.NewNRGBA(image.Rect(0, 0, small, small))
	drawCardText(layer, p)

	text := imaging.Resize(layer, r.size, r.size, imaging.NearestNeighbor)
	canvas = imaging.Overlay(canvas, text, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode share card: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCardText(dst draw.Image, p ShareCardParams) {
	face := basicfont.Face7x13
	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()
	lineHeight := face.Height + shareCardLeading
	cols := (width - 2*shareCardMargin) / face.Advance

	var lines []cardLine
	if title := foldForBitmap(p.Title); title != "" {
		for _, l := range wrapText(strings.ToUpper(title), cols) {
			lines = append(lines, cardLine{text: l, color: shareCardAccent})
		}
		lines = append(lines, cardLine{})
	}
	for _, l := range wrapText(foldForBitmap(p.Body), cols) {
		lines = append(lines, cardLine{text: l, color: shareCardText})
	}

	footer := foldForBitmap(p.Footer)
	bodyRows := (height - 2*shareCardMargin) / lineHeight
	if footer != "" {
		bodyRows -= 2
	}
	lines = truncateLines(lines, bodyRows, cols)

	// Vertically centre the block.
	y := (height-len(lines)*lineHeight)/2 + face.Ascent
	for _, l := range lines {
		drawLine(dst, face, l, width, y)
		y += lineHeight
	}
	if footer != "" {
		drawLine(dst, face, cardLine{text: footer, color: shareCardAccent}, width, height-shareCardMargin-face.Descent)
	}
}

type cardLine struct {
	text  string
	color color.Color
}

func drawLine(dst draw.Image, face *basicfont.Face, l cardLine, width, baseline int) {
	if l.text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(l.color),
		Face: face,
	}
	adv := d.MeasureString(l.text).Round()
	d.Dot = fixed.P((width-adv)/2, baseline)
	d.DrawString(l.text)
}

// wrapText breaks s into lines of at most cols runes, splitting on
// whitespace and hard-breaking words longer than a line.
func wrapText(s string, cols int) []string {
	if cols <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var cur []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > cols {
				if len(cur) > 0 {
					lines = append(lines, string(cur))
					cur = nil
				}
				lines = append(lines, string(w[:cols]))
				w = w[cols:]
			}
			switch {
			case len(cur) == 0:
				cur = append(cur, w...)
			case len(cur)+1+len(w) <= cols:
				cur = append(append(cur, ' '), w...)
			default:
				lines = append(lines, string(cur))
				cur = append([]rune(nil), w...)
			}
		}
		if len(cur) > 0 {
			lines = append(lines, string(cur))
		}
	}
	return lines
}

func truncateLines(lines []cardLine, max, cols int) []cardLine {
	if max <= 0 {
		return nil
	}
	if len(lines) <= max {
		return lines
	}
	lines = lines[:max]
	last := []rune(lines[max-1].text)
	if len(last)+3 > cols {
		last = last[:cols-3]
	}
	lines[max-1].text = strings.TrimRight(string(last), " ") + "..."
	return lines
}

// foldForBitmap strips diacritics so Latin text renders with the ASCII face.
// Runes the face lacks are drawn as the replacement glyph.
func foldForBitmap(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
