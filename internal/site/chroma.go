package site

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/euforicio/wikigen/internal/renderer"
)

// ChromaCSS returns the stylesheet matching the class names the renderer
// emits for highlighted code. An empty style selects the default.
func ChromaCSS(style string) ([]byte, error) {
	if style == "" {
		style = renderer.DefaultStyle
	}
	s, ok := styles.Registry[style]
	if !ok {
		return nil, fmt.Errorf("chroma style %q not found", style)
	}
	formatter := html.New(
		html.WithClasses(true),
		html.ClassPrefix(""),
	)
	var buf bytes.Buffer
	if err := formatter.WriteCSS(&buf, s); err != nil {
		return nil, fmt.Errorf("generate chroma css: %w", err)
	}
	return buf.Bytes(), nil
}
