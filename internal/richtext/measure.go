// Package richtext estimates how much room rich-text content needs when
// the renderer cannot be asked directly, e.g. for headless MCP edits.
package richtext

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"canvasnotes/internal/domain"
)

// Measurer estimates rendered height from character counts. It satisfies
// canvas.Measurer.
type Measurer struct {
	CharWidth  float64
	LineHeight float64
	Padding    float64 // vertical padding added once
}

func NewMeasurer() Measurer {
	return Measurer{CharWidth: 8, LineHeight: 20, Padding: 16}
}

// ContentHeight returns the height el's content occupies when wrapped to
// width. A collapsed expandable only shows its title.
func (m Measurer) ContentHeight(el domain.Element, width float64) float64 {
	perLine := int(math.Max(1, math.Floor(width/m.CharWidth)))

	var lines int
	switch s := el.Shape.(type) {
	case domain.Text:
		lines = wrappedLines(s.Content, perLine)
	case domain.Expandable:
		lines = wrappedLines(s.Title(), perLine)
		if s.Expanded && s.Body() != "" {
			lines += wrappedLines(s.Body(), perLine)
		}
	default:
		return 0
	}
	return float64(lines)*m.LineHeight + m.Padding
}

func wrappedLines(content string, perLine int) int {
	lines := 0
	for _, line := range strings.Split(PlainText(content), "\n") {
		n := utf8.RuneCountInString(line)
		lines += max(1, (n+perLine-1)/perLine)
	}
	return lines
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "pre": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "tr": true,
}

// PlainText strips markup from editor HTML, turning block boundaries into
// newlines. Plain strings pass through unchanged.
func PlainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	pendingBreak := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimRight(b.String(), "\n")
		case html.TextToken:
			if pendingBreak && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			pendingBreak = false
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				pendingBreak = true
			}
		}
	}
}
