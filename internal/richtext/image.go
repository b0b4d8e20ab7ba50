// Package richtext edits and sanitises the HTML stored in rich-text fields,
// including the styled images the admin console embeds in them.
package richtext

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Alignment values for an embedded image.
const (
	AlignNone   = "none"
	AlignLeft   = "left"
	AlignRight  = "right"
	AlignCenter = "center"
)

// Width values for an embedded image.
const (
	WidthSmall  = "small"
	WidthMedium = "medium"
	WidthLarge  = "large"
	WidthFull   = "full"
)

// IDAttr is the attribute linking an image node to its stored options.
const IDAttr = "data-image-id"

var (
	// ErrImageNotFound is returned when no image carries the requested id.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidOptions is returned for an unknown alignment or width.
	ErrInvalidOptions = errors.New("invalid image options")
)

var maxWidths = map[string]string{
	WidthSmall:  "200px",
	WidthMedium: "400px",
	WidthLarge:  "600px",
	WidthFull:   "100%",
}

// ImageOptions is the presentation of one embedded image.
type ImageOptions struct {
	Alignment string `json:"alignment"`
	Width     string `json:"width"`
	Border    bool   `json:"border"`
	Caption   string `json:"caption"`
}

// DefaultOptions returns none/medium/no border/no caption.
func DefaultOptions() ImageOptions {
	return ImageOptions{Alignment: AlignNone, Width: WidthMedium}
}

// Normalize fills empty alignment and width with their defaults and trims the caption.
func (o ImageOptions) Normalize() ImageOptions {
	if o.Alignment == "" {
		o.Alignment = AlignNone
	}
	if o.Width == "" {
		o.Width = WidthMedium
	}
	o.Caption = strings.TrimSpace(o.Caption)
	return o
}

// Validate reports an unknown alignment or width.
func (o ImageOptions) Validate() error {
	switch o.Alignment {
	case AlignNone, AlignLeft, AlignRight, AlignCenter:
	default:
		return fmt.Errorf("%w: alignment %q", ErrInvalidOptions, o.Alignment)
	}
	if _, ok := maxWidths[o.Width]; !ok {
		return fmt.Errorf("%w: width %q", ErrInvalidOptions, o.Width)
	}
	return nil
}

// Image is an embedded image with its identity and presentation.
type Image struct {
	ID      string       `json:"id"`
	URL     string       `json:"url"`
	Options ImageOptions `json:"options"`
}

// imageStyle builds the inline style of the img element.
func imageStyle(o ImageOptions) string {
	decls := []string{
		"max-width: " + maxWidths[o.Width],
		"height: auto",
		"border-radius: 8px",
	}
	switch o.Alignment {
	case AlignLeft:
		decls = append(decls, "float: left", "margin-right: 20px", "margin-bottom: 16px", "margin-top: 8px", "clear: left")
	case AlignRight:
		decls = append(decls, "float: right", "margin-left: 20px", "margin-bottom: 16px", "margin-top: 8px", "clear: right")
	case AlignCenter:
		decls = append(decls, "display: block", "margin-left: auto", "margin-right: auto", "margin-top: 16px", "margin-bottom: 16px")
	default:
		decls = append(decls, "margin-top: 16px", "margin-bottom: 16px")
	}
	if o.Border {
		decls = append(decls, "border: 3px solid #991b1b", "padding: 4px", "box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1)")
	}
	return strings.Join(decls, "; ") + ";"
}

func figureStyle(o ImageOptions) string {
	decls := []string{"margin: 16px 0"}
	switch o.Alignment {
	case AlignLeft:
		decls = append(decls, "float: left", "margin-right: 20px", "clear: left")
	case AlignRight:
		decls = append(decls, "float: right", "margin-left: 20px", "clear: right")
	case AlignCenter:
		decls = append(decls, "display: block", "margin-left: auto", "margin-right: auto", "text-align: center")
	}
	return strings.Join(decls, "; ") + ";"
}

const captionStyle = "font-size: 14px; color: #6b7280; font-style: italic; text-align: center; margin-top: 8px; padding: 0 8px;"

// node builds the DOM for img: a bare img, or a figure with a figcaption
// when a caption is set.
func node(img Image) *html.Node {
	o := img.Options.Normalize()
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: img.URL},
			{Key: "alt", Val: o.Caption},
			{Key: "class", Val: "editable-image uploaded-image"},
			{Key: IDAttr, Val: img.ID},
			{Key: "style", Val: imageStyle(o)},
		},
	}
	if o.Caption == "" {
		return el
	}

	figure := &html.Node{
		Type:     html.ElementNode,
		Data:     "figure",
		DataAtom: atom.Figure,
		Attr: []html.Attribute{
			{Key: "class", Val: "image-figure"},
			{Key: "style", Val: figureStyle(o)},
		},
	}
	caption := &html.Node{
		Type:     html.ElementNode,
		Data:     "figcaption",
		DataAtom: atom.Figcaption,
		Attr: []html.Attribute{
			{Key: "class", Val: "image-caption"},
			{Key: "style", Val: captionStyle},
		},
	}
	caption.AppendChild(&html.Node{Type: html.TextNode, Data: o.Caption})
	figure.AppendChild(el)
	figure.AppendChild(caption)
	return figure
}

// Render returns the HTML for a single embedded image.
func Render(img Image) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, node(img)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Insert places img before top-level block pos of doc. A negative or
// out-of-range pos appends.
func Insert(doc string, pos int, img Image) (string, error) {
	if err := img.Options.Normalize().Validate(); err != nil {
		return doc, err
	}
	root, err := parse(doc)
	if err != nil {
		return doc, err
	}

	var before *html.Node
	if pos >= 0 {
		i := 0
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			if isBlank(c) {
				continue
			}
			if i == pos {
				before = c
				break
			}
			i++
		}
	}
	root.InsertBefore(node(img), before)
	return render(root)
}

// Replace swaps the image carrying id for a freshly rendered img at the same
// position. The old node, and its figure if it had one, is removed.
func Replace(doc, id string, img Image) (string, error) {
	if err := img.Options.Normalize().Validate(); err != nil {
		return doc, err
	}
	root, err := parse(doc)
	if err != nil {
		return doc, err
	}
	target := findImage(root, id)
	if target == nil {
		return doc, ErrImageNotFound
	}
	target = container(target)

	parent, next := target.Parent, target.NextSibling
	parent.RemoveChild(target)
	parent.InsertBefore(node(img), next)
	return render(root)
}

// Remove deletes the image carrying id, with its figure.
func Remove(doc, id string) (string, error) {
	root, err := parse(doc)
	if err != nil {
		return doc, err
	}
	target := findImage(root, id)
	if target == nil {
		return doc, ErrImageNotFound
	}
	target = container(target)
	target.Parent.RemoveChild(target)
	return render(root)
}

// Images lists the identified images of doc in document order. Options are
// read back from the markup; callers holding stored options should prefer them.
func Images(doc string) ([]Image, error) {
	root, err := parse(doc)
	if err != nil {
		return nil, err
	}
	var out []Image
	walk(root, func(n *html.Node) {
		if n.DataAtom != atom.Img {
			return
		}
		id := attr(n, IDAttr)
		if id == "" {
			return
		}
		out = append(out, Image{ID: id, URL: attr(n, "src"), Options: GuessOptions(n)})
	})
	return out, nil
}

// Adopt gives every editable image without an id a fresh one from newID, so
// content written before ids existed can be edited. It returns the updated
// document and the adopted images with their guessed options.
func Adopt(doc string, newID func() string) (string, []Image, error) {
	root, err := parse(doc)
	if err != nil {
		return doc, nil, err
	}
	var adopted []Image
	walk(root, func(n *html.Node) {
		if n.DataAtom != atom.Img || attr(n, IDAttr) != "" || !hasClass(n, "editable-image") {
			return
		}
		id := newID()
		n.Attr = append(n.Attr, html.Attribute{Key: IDAttr, Val: id})
		adopted = append(adopted, Image{ID: id, URL: attr(n, "src"), Options: GuessOptions(n)})
	})
	if len(adopted) == 0 {
		return doc, nil, nil
	}
	out, err := render(root)
	return out, adopted, err
}

// GuessOptions reverse-parses presentation from an img node's inline style,
// classes and enclosing figure. It is a heuristic for images with no stored
// options and matches on the literal values Render emits.
func GuessOptions(img *html.Node) ImageOptions {
	style := strings.ReplaceAll(strings.ToLower(attr(img, "style")), " ", "")
	o := DefaultOptions()

	switch {
	case strings.Contains(style, "float:left") || hasClass(img, "float-left"):
		o.Alignment = AlignLeft
	case strings.Contains(style, "float:right") || hasClass(img, "float-right"):
		o.Alignment = AlignRight
	case strings.Contains(style, "display:block") || hasClass(img, "center-image"):
		o.Alignment = AlignCenter
	}

	switch {
	case strings.Contains(style, "200px") || hasClass(img, "img-small"):
		o.Width = WidthSmall
	case strings.Contains(style, "600px") || hasClass(img, "img-large"):
		o.Width = WidthLarge
	case strings.Contains(style, "100%") || hasClass(img, "img-full"):
		o.Width = WidthFull
	}

	o.Border = strings.Contains(style, "3px") || hasClass(img, "img-border")

	if p := img.Parent; p != nil && p.DataAtom == atom.Figure {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == atom.Figcaption {
				o.Caption = strings.TrimSpace(text(c))
			}
		}
	}
	return o
}

func parse(doc string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(doc), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rich text: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

func render(root *html.Node) (string, error) {
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("failed to render rich text: %w", err)
		}
	}
	return b.String(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		walk(c, fn)
	}
}

func findImage(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.DataAtom == atom.Img && attr(n, IDAttr) == id {
			found = n
		}
	})
	return found
}

// container returns the figure wrapping img, or img itself.
func container(img *html.Node) *html.Node {
	if p := img.Parent; p != nil && p.DataAtom == atom.Figure {
		return p
	}
	return img
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func isBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}
