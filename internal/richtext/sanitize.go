package richtext

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	classNames = regexp.MustCompile(`^[A-Za-z0-9_ -]+$`)
	imageID    = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	cssValue   = regexp.MustCompile(`^[A-Za-z0-9#%(),. -]+$`)

	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// styleProperties are the inline styles the image tool and the editor emit.
var styleProperties = []string{
	"max-width", "height", "border-radius", "float", "clear", "display",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"border", "padding", "box-shadow",
	"font-size", "font-style", "font-weight", "color", "background-color",
	"text-align", "text-decoration",
}

// Policy returns the shared sanitising policy: bluemonday's UGC policy plus
// figures, class names, image ids and a fixed set of inline styles.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("figure", "figcaption")
		p.AllowAttrs("class").Matching(classNames).Globally()
		p.AllowAttrs(IDAttr).Matching(imageID).OnElements("img")
		p.AllowStyles(styleProperties...).Matching(cssValue).Globally()
		p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
		policy = p
	})
	return policy
}

// Sanitize strips everything the policy does not allow.
func Sanitize(s string) string {
	return Policy().Sanitize(s)
}

var (
	embedOnce   sync.Once
	embedPolicy *bluemonday.Policy
	httpsURL    = regexp.MustCompile(`^https://`)
)

// SanitizeEmbed keeps the iframe of a third-party widget snippet, such as
// a newsletter sign-up form, and drops scripts and handlers.
func SanitizeEmbed(s string) string {
	embedOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("div", "p", "a", "br")
		p.AllowAttrs("href").OnElements("a")
		p.AllowAttrs("src").Matching(httpsURL).OnElements("iframe")
		p.AllowAttrs("width", "height", "title", "frameborder", "scrolling", "allow", "allowfullscreen", "allowtransparency").OnElements("iframe")
		p.AllowAttrs("class").Matching(classNames).Globally()
		p.AllowStyles(append(styleProperties, "width", "min-height", "border")...).Matching(cssValue).Globally()
		p.AllowURLSchemes("https", "mailto")
		p.RequireNoFollowOnLinks(true)
		embedPolicy = p
	})
	return embedPolicy.Sanitize(s)
}
