// Package simplify shrinks scraped HTML before it is handed to a language
// model. It drops scripts, comments and scroll/tilt animation hooks, and
// removes inline styles that hide or move content, without restructuring
// the document.
package simplify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	droppedAttrPrefixes = []string{"data-sr", "data-tilt"}
	droppedClasses      = map[string]bool{"load-hidden": true, "sr": true}
	droppedStyleProps   = map[string]bool{"visibility": true, "opacity": true, "transform": true}
)

// HTML returns src with the simplification rules applied. Input with a
// doctype or an <html>, <head> or <body> tag is parsed as a document and
// rendered back at the level it was written: the implied <html> wrapper
// and an implied empty <head> are left out. Anything else is a fragment,
// parsed in the context its first element needs (a leading <tr> is parsed
// as table body content, not as loose text).
//
// Empty input yields empty output. Applying HTML to its own output
// returns the same string.
func HTML(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}

	shape := inspect(src)
	nodes, err := parse(src, shape)
	if err != nil {
		return "", err
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, noscript").Remove()
	removeComments(root)
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			cleanAttributes(n)
		}
	})

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

// shape records which document-level markers the source spells out and
// the first element it opens.
type shape struct {
	doctype, html, head, body bool
	// first is zero when the first element is unknown to the atom table.
	first  atom.Atom
	opened bool
}

func (s shape) document() bool {
	return s.doctype || s.html || s.head || s.body
}

func inspect(src string) shape {
	var sh shape
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sh
		case html.DoctypeToken:
			sh.doctype = true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if !sh.opened {
				sh.first, sh.opened = a, true
			}
			switch a {
			case atom.Html:
				sh.html = true
			case atom.Head:
				sh.head = true
			case atom.Body:
				sh.body = true
			}
		}
	}
}

// parse returns the top-level nodes to render.
func parse(src string, sh shape) ([]*html.Node, error) {
	if sh.document() {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse html document: %w", err)
		}
		if sh.doctype || sh.html {
			return children(doc), nil
		}
		return documentLevel(doc, sh), nil
	}

	nodes, err := html.ParseFragment(strings.NewReader(src), fragmentContext(sh.first))
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	return nodes, nil
}

// documentLevel unwraps the implied <html> element of a parsed document
// whose source started at <head> or <body>.
func documentLevel(doc *html.Node, sh shape) []*html.Node {
	var out []*html.Node
	for _, top := range children(doc) {
		if top.Type != html.ElementNode || top.DataAtom != atom.Html {
			out = append(out, top)
			continue
		}
		for _, c := range children(top) {
			if c.DataAtom == atom.Head && !sh.head && c.FirstChild == nil {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// fragmentContext picks the element a fragment starting with first would
// sit in, so table parts keep their tags.
func fragmentContext(first atom.Atom) *html.Node {
	ctx := atom.Body
	switch first {
	case atom.Tr:
		ctx = atom.Tbody
	case atom.Td, atom.Th:
		ctx = atom.Tr
	case atom.Tbody, atom.Thead, atom.Tfoot, atom.Caption, atom.Colgroup:
		ctx = atom.Table
	case atom.Col:
		ctx = atom.Colgroup
	}
	return &html.Node{Type: html.ElementNode, Data: ctx.String(), DataAtom: ctx}
}

func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

func cleanAttributes(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if hasDroppedPrefix(a.Key) {
			continue
		}
		switch a.Key {
		case "class":
			if a.Val == "" {
				break
			}
			a.Val = cleanClass(a.Val)
			if a.Val == "" {
				continue
			}
		case "style":
			if a.Val == "" {
				break
			}
			a.Val = cleanStyle(a.Val)
			if a.Val == "" {
				continue
			}
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func hasDroppedPrefix(key string) bool {
	for _, p := range droppedAttrPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func cleanClass(val string) string {
	tokens := strings.Fields(val)
	kept := tokens[:0]
	for _, t := range tokens {
		if !droppedClasses[t] {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// cleanStyle drops declarations whose property is in droppedStyleProps.
// Declarations are matched on their property name, so text-transform
// survives. A trailing ';' on the input is kept, and runs of whitespace
// are collapsed.
func cleanStyle(val string) string {
	segments := strings.Split(val, ";")
	terminated := len(segments) > 1 && strings.TrimSpace(segments[len(segments)-1]) == ""

	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if prop, _, ok := strings.Cut(seg, ":"); ok && droppedStyleProps[strings.ToLower(strings.TrimSpace(prop))] {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return ""
	}

	out := strings.Join(kept, ";")
	if terminated {
		out += ";"
	}
	return strings.Join(strings.Fields(out), " ")
}
