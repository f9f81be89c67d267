// Package macro implements the wiki's markdown macros: fenced image,
// gallery, download and callout blocks plus inline gradient text, colored
// text, wiki links and inline icons.
//
// Tokenizers are pure functions from source text to a Token. Rendering a
// Token to HTML is separate (see HTML), and Extension wires both into goldmark.
package macro

// Token is the parse result of a single macro invocation. The set of
// implementations is closed.
type Token interface {
	macro()
}

// Align is a horizontal block alignment.
type Align string

// Block alignments.
const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func parseAlign(v string) (Align, bool) {
	switch Align(v) {
	case AlignLeft, AlignCenter, AlignRight:
		return Align(v), true
	}
	return "", false
}

// Gradient is <gradient:C1:C2>text</gradient>. Colors are unvalidated.
type Gradient struct {
	From  string
	To    string
	Inner string
}

// Color is <#HEX>text</#HEX> or <#HEX>text<.#HEX>.
type Color struct {
	Hex   string
	Inner string
}

// LinkKind distinguishes [[link:...]], [[page:...]] and [[cat:...]].
type LinkKind string

// Wiki link kinds. Page is an alias of Link; Cat targets a section.
const (
	LinkKindLink LinkKind = "link"
	LinkKindPage LinkKind = "page"
	LinkKindCat  LinkKind = "cat"
)

// WikiLink is [[kind:target|label]].
type WikiLink struct {
	Kind   LinkKind
	Target string
	Label  string
}

// AssetKind distinguishes [[icon:...]] from [[img:...]].
type AssetKind string

// Inline asset kinds.
const (
	AssetIcon AssetKind = "icon"
	AssetImg  AssetKind = "img"
)

// InlineAsset is [[icon:ref|opt=val|...]] or [[img:ref|...]].
// Option keys are lower-cased.
type InlineAsset struct {
	Kind    AssetKind
	Ref     string
	Options map[string]string
}

// Option returns the first non-empty option among keys.
func (t *InlineAsset) Option(keys ...string) string {
	for _, k := range keys {
		if v := t.Options[k]; v != "" {
			return v
		}
	}
	return ""
}

// Image is a ```image fence.
type Image struct {
	Src     string
	Alt     string
	Caption string
	Link    string
	Align   Align
	Width   string
	Height  string
	Fit     string
}

// GalleryItem is one line of a ```gallery fence.
type GalleryItem struct {
	Src     string `json:"src"`
	Caption string `json:"caption,omitempty"`
}

// Gallery is a ```gallery fence. Width is zero when unset.
type Gallery struct {
	Align Align
	Width float64
	Items []GalleryItem
}

// Download is a ```download fence.
type Download struct {
	File  string
	Label string
	Desc  string
}

// CalloutType is the visual flavor of a callout.
type CalloutType string

// Callout types.
const (
	CalloutNote    CalloutType = "note"
	CalloutWarning CalloutType = "warning"
	CalloutTip     CalloutType = "tip"
	CalloutError   CalloutType = "error"
)

// Callout is a ```callout fence. Body is raw markdown.
type Callout struct {
	Type  CalloutType
	Title string
	Icon  string
	Body  string
}

func (*Gradient) macro()    {}
func (*Color) macro()       {}
func (*WikiLink) macro()    {}
func (*InlineAsset) macro() {}
func (*Image) macro()       {}
func (*Gallery) macro()     {}
func (*Download) macro()    {}
func (*Callout) macro()     {}
