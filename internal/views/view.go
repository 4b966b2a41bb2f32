// Package views holds the five coordinated renderers. Each one declares the
// state it depends on, computes a layout from the dataset cache and a
// selection snapshot, and draws that layout into an svg tree. Gestures
// write back through the store and must run on the coordination loop.
package views

import (
	"github.com/valyala/fasttemplate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"worldstats/internal/cache"
	"worldstats/internal/state"
	"worldstats/internal/svg"
)

// Placeholder texts for charts without data.
const (
	NoDataText      = "No data available"
	FetchFailedText = "Failed to fetch data"
)

// View is one coordinated renderer.
type View interface {
	Name() string
	// Deps is the set of state and dataset fields the view redraws on.
	Deps() state.Field
	Size() (w, h int)
	Render(snap state.Snapshot) *svg.Node
}

// Hoverable views describe the item under the pointer. key names the item:
// a country or a region.
type Hoverable interface {
	Tooltip(snap state.Snapshot, key string) (string, bool)
}

var printer = message.NewPrinter(language.English)

// fixed2 formats v with two decimals.
func fixed2(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// tooltip fills a {tag} template.
func tooltip(tmpl string, vars map[string]any) string {
	return fasttemplate.ExecuteString(tmpl, "{", "}", vars)
}

// slotMessage returns the placeholder for a slot that has nothing to draw.
func slotMessage[T any](s *cache.Slot[T]) (string, bool) {
	switch {
	case s.Loaded:
		return "", false
	case s.Err != nil:
		return FetchFailedText, true
	default:
		return NoDataText, true
	}
}

// placeholder draws a centered message on an otherwise empty surface.
func placeholder(w, h float64, title, msg string) *svg.Node {
	doc := svg.Document(w, h)
	if title != "" {
		doc.Add(svg.Text(w/2, 20, title, "text-anchor", "middle", "font-size", "16"))
	}
	return doc.Add(svg.Text(w/2, h/2, msg, "class", "placeholder", "text-anchor", "middle"))
}

// Placeholder returns the message drawn in doc, if any.
func Placeholder(doc *svg.Node) (string, bool) {
	if n := doc.Find(svg.ByClass("placeholder")); len(n) > 0 {
		return n[0].Text, true
	}
	return "", false
}
