// Package svg is the visual tree the views render into, plus its SVG and
// PNG encoders.
package svg

import (
	"encoding/xml"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

type Attr struct {
	Name, Value string
}

// Node is one element of a visual tree. Attributes keep insertion order so
// output is stable.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// El builds a node from alternating attribute names and values.
func El(tag string, kv ...string) *Node {
	n := &Node{Tag: tag}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Set(kv[i], kv[i+1])
	}
	return n
}

// Text builds a <text> node at (x, y).
func Text(x, y float64, s string, kv ...string) *Node {
	n := El("text", append([]string{"x", F(x), "y", F(y)}, kv...)...)
	n.Text = s
	return n
}

// Document is the root <svg> element of a w by h surface.
func Document(w, h float64) *Node {
	return El("svg",
		"xmlns", "http://www.w3.org/2000/svg",
		"width", F(w), "height", F(h),
		"viewBox", "0 0 "+F(w)+" "+F(h))
}

// F formats a coordinate with at most two decimals.
func F(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Set adds or replaces an attribute.
func (n *Node) Set(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Find returns every node below n (n included) that matches pred, in
// document order.
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(m *Node) {
		if pred(m) {
			out = append(out, m)
		}
		for _, c := range m.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByClass matches nodes whose class attribute equals class.
func ByClass(class string) func(*Node) bool {
	return func(n *Node) bool {
		c, _ := n.Attr("class")
		return c == class
	}
}

// Bytes returns the SVG markup of the tree.
func (n *Node) Bytes() []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	n.encode(buf)
	return append([]byte(nil), buf.B...)
}

func (n *Node) encode(buf *bytebufferpool.ByteBuffer) {
	buf.WriteString("<")
	buf.WriteString(n.Tag)
	for _, a := range n.Attrs {
		buf.WriteString(" ")
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteString(`"`)
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	_ = xml.EscapeText(buf, []byte(n.Text))
	for _, c := range n.Children {
		c.encode(buf)
	}
	buf.WriteString("</")
	buf.WriteString(n.Tag)
	buf.WriteString(">")
}
