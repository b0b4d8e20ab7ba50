//go:build unit

package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestRender_BareImage(t *testing.T) {
	out, err := Render(Image{ID: "img-1", URL: "https://cdn.example.com/a.png", Options: DefaultOptions()})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<img "))
	assert.Contains(t, out, `data-image-id="img-1"`)
	assert.Contains(t, out, `class="editable-image uploaded-image"`)
	assert.Contains(t, out, "max-width: 400px")
	assert.Contains(t, out, "margin-top: 16px")
	assert.NotContains(t, out, "float")
	assert.NotContains(t, out, "<figure")
}

func TestRender_StyleRules(t *testing.T) {
	tests := []struct {
		name    string
		opts    ImageOptions
		want    []string
		notWant []string
	}{
		{
			name: "small left",
			opts: ImageOptions{Alignment: AlignLeft, Width: WidthSmall},
			want: []string{"max-width: 200px", "float: left", "margin-right: 20px", "clear: left"},
		},
		{
			name: "large right",
			opts: ImageOptions{Alignment: AlignRight, Width: WidthLarge},
			want: []string{"max-width: 600px", "float: right", "margin-left: 20px", "clear: right"},
		},
		{
			name: "full center",
			opts: ImageOptions{Alignment: AlignCenter, Width: WidthFull},
			want: []string{"max-width: 100%", "display: block", "margin-left: auto", "margin-right: auto"},
		},
		{
			name:    "border",
			opts:    ImageOptions{Alignment: AlignNone, Width: WidthMedium, Border: true},
			want:    []string{"border: 3px solid #991b1b", "padding: 4px", "box-shadow"},
			notWant: []string{"float"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(Image{ID: "x", URL: "u.png", Options: tt.opts})
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, out, nw)
			}
		})
	}
}

func TestRender_CaptionWrapsInFigure(t *testing.T) {
	out, err := Render(Image{ID: "x", URL: "u.png", Options: ImageOptions{Alignment: AlignCenter, Width: WidthMedium, Caption: "Riders at <dawn>"}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<figure class="image-figure"`))
	assert.Contains(t, out, "text-align: center")
	assert.Contains(t, out, `<figcaption class="image-caption"`)
	assert.Contains(t, out, "Riders at &lt;dawn&gt;")
	assert.Contains(t, out, "font-style: italic")
}

func TestInsert_Positions(t *testing.T) {
	doc := "<p>one</p>\n<p>two</p>"
	img := Image{ID: "new", URL: "n.png", Options: DefaultOptions()}

	front, err := Insert(doc, 0, img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(front, "<img "), front)

	middle, err := Insert(doc, 1, img)
	require.NoError(t, err)
	assert.Less(t, strings.Index(middle, "one"), strings.Index(middle, "<img"))
	assert.Less(t, strings.Index(middle, "<img"), strings.Index(middle, "two"))

	end, err := Insert(doc, -1, img)
	require.NoError(t, err)
	assert.Greater(t, strings.Index(end, "<img"), strings.Index(end, "two"))

	past, err := Insert(doc, 10, img)
	require.NoError(t, err)
	assert.Equal(t, end, past)
}

func TestInsert_RejectsInvalidOptions(t *testing.T) {
	doc := "<p>keep</p>"
	out, err := Insert(doc, 0, Image{ID: "x", URL: "u", Options: ImageOptions{Alignment: "diagonal"}})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Equal(t, doc, out)
}

func TestReplace_ReinsertsAtSamePosition(t *testing.T) {
	doc, err := Insert("<p>before</p><p>after</p>", 1, Image{ID: "a", URL: "a.png", Options: ImageOptions{Caption: "old"}})
	require.NoError(t, err)
	require.Contains(t, doc, "<figure")

	out, err := Replace(doc, "a", Image{ID: "a", URL: "a.png", Options: ImageOptions{Alignment: AlignLeft, Width: WidthSmall}})
	require.NoError(t, err)

	assert.NotContains(t, out, "<figure")
	assert.NotContains(t, out, "old")
	assert.Equal(t, 1, strings.Count(out, "<img"))
	assert.Less(t, strings.Index(out, "before"), strings.Index(out, "<img"))
	assert.Less(t, strings.Index(out, "<img"), strings.Index(out, "after"))
	assert.Contains(t, out, "float: left")
}

func TestReplace_UnknownID(t *testing.T) {
	doc := "<p>x</p>"
	out, err := Replace(doc, "ghost", Image{ID: "ghost", URL: "g.png", Options: DefaultOptions()})
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.Equal(t, doc, out)
}

func TestRemove(t *testing.T) {
	doc, err := Insert("<p>text</p>", -1, Image{ID: "gone", URL: "g.png", Options: ImageOptions{Caption: "c"}})
	require.NoError(t, err)

	out, err := Remove(doc, "gone")
	require.NoError(t, err)
	assert.Equal(t, "<p>text</p>", out)
}

func TestImages_ListsInDocumentOrder(t *testing.T) {
	doc := "<p>x</p>"
	var err error
	doc, err = Insert(doc, -1, Image{ID: "first", URL: "1.png", Options: ImageOptions{Width: WidthLarge, Border: true}})
	require.NoError(t, err)
	doc, err = Insert(doc, -1, Image{ID: "second", URL: "2.png", Options: ImageOptions{Alignment: AlignRight, Caption: "cap"}})
	require.NoError(t, err)

	imgs, err := Images(doc + `<img src="plain.png">`)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "first", imgs[0].ID)
	assert.Equal(t, WidthLarge, imgs[0].Options.Width)
	assert.True(t, imgs[0].Options.Border)
	assert.Equal(t, "second", imgs[1].ID)
	assert.Equal(t, AlignRight, imgs[1].Options.Alignment)
	assert.Equal(t, "cap", imgs[1].Options.Caption)
}

func TestAdopt_AssignsIDsToLegacyImages(t *testing.T) {
	doc := `<p><img class="editable-image" src="old.png" style="max-width: 200px; float: left;"></p><img src="foreign.png">`
	n := 0
	out, adopted, err := Adopt(doc, func() string { n++; return "adopted-1" })
	require.NoError(t, err)

	require.Len(t, adopted, 1)
	assert.Equal(t, 1, n)
	assert.Equal(t, "adopted-1", adopted[0].ID)
	assert.Equal(t, ImageOptions{Alignment: AlignLeft, Width: WidthSmall}, adopted[0].Options)
	assert.Contains(t, out, `data-image-id="adopted-1"`)

	again, none, err := Adopt(out, func() string { t.Fatal("no new ids expected"); return "" })
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, out, again)
}

func TestGuessOptions(t *testing.T) {
	nodes, err := html.ParseFragment(strings.NewReader(
		`<figure><img style="max-width: 100%; display: block; border: 3px solid #991b1b"><figcaption> A caption </figcaption></figure>`), nil)
	require.NoError(t, err)
	var img *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			img = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	for _, n := range nodes {
		find(n)
	}
	require.NotNil(t, img)

	got := GuessOptions(img)
	assert.Equal(t, ImageOptions{Alignment: AlignCenter, Width: WidthFull, Border: true, Caption: "A caption"}, got)
}
