// Package transform holds goldmark AST transformers and code block
// wrappers for diagram languages.
package transform

import (
	"bytes"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/util"
)

// clientDiagrams maps fence languages rendered in the browser to the
// element class their script hydrates.
var clientDiagrams = map[string]string{
	"mermaid": "mermaid",
}

// MermaidWrapper returns a wrapper renderer that emits ```mermaid fences as
// <pre class="mermaid"> for mermaid.js and falls back to plain <pre><code>
// for languages chroma does not know.
func MermaidWrapper() highlighting.WrapperRenderer {
	return func(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
		if ctx.Highlighted() {
			return
		}

		lang, _ := ctx.Language()
		if class, ok := clientDiagrams[strings.ToLower(strings.TrimSpace(string(lang)))]; ok {
			if entering {
				_, _ = w.WriteString(`<pre class="` + class + `">`)
			} else {
				_, _ = w.WriteString("</pre>\n")
			}
			return
		}

		if !entering {
			_, _ = w.WriteString("</code></pre>\n")
			return
		}
		_, _ = w.WriteString("<pre><code")
		if trimmed := bytes.TrimSpace(lang); len(trimmed) > 0 {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML(trimmed))
			_, _ = w.WriteString(`"`)
		}
		_, _ = w.WriteString(">")
	}
}
