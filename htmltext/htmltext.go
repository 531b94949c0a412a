// Package htmltext walks the text nodes of an HTML document together with the font family and weight they are set in.
package htmltext

import (
	"io"
	"strconv"
	"strings"

	"github.com/tdewolff/incrfont/fontset"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type style struct {
	family string
	weight string
}

// Walk parses an HTML document and calls f for every non-blank text node in document order. Text inherits the font-family and font-weight of inline styles, and b, strong, th and heading elements are bold. Family is the family of text without a font-family style.
func Walk(r io.Reader, family string, f func(fontset.TextChange)) error {
	doc, err := html.Parse(r)
	if err != nil {
		return err
	}
	walk(doc, style{family, fontset.DefaultWeight}, f)
	return nil
}

// Fill appends the text nodes of an HTML document to buf.
func Fill(buf *fontset.TextBuffer, r io.Reader, family string) error {
	return Walk(r, family, func(change fontset.TextChange) {
		buf.Append(change)
	})
}

func walk(n *html.Node, s style, f func(fontset.TextChange)) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			f(fontset.TextChange{Text: n.Data, Family: s.family, Weight: s.weight})
		}
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Template, atom.Noscript:
			return
		case atom.B, atom.Strong, atom.Th, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			s.weight = "700"
		}
		for _, attr := range n.Attr {
			if attr.Namespace == "" && attr.Key == "style" {
				s = parseStyle(attr.Val, s)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, s, f)
	}
}

// relativeWeight resolves bolder and lighter against the inherited weight.
func relativeWeight(inherited, weight string) string {
	w, err := strconv.Atoi(inherited)
	if err != nil {
		w = 400
	}
	if weight == "bolder" {
		if w < 350 {
			return "400"
		} else if w < 550 {
			return "700"
		}
		return "900"
	}
	if w < 550 {
		return "100"
	} else if w < 750 {
		return "400"
	}
	return "700"
}

// parseStyle applies the font-family and font-weight declarations of an inline style.
func parseStyle(val string, s style) style {
	p := css.NewParser(parse.NewInputString(val), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			break
		} else if gt != css.DeclarationGrammar {
			continue
		}

		switch strings.ToLower(string(data)) {
		case "font-weight":
			for _, val := range p.Values() {
				if val.TokenType == css.IdentToken || val.TokenType == css.NumberToken {
					s.weight = declaredWeight(s.weight, string(val.Data))
					break
				}
			}
		case "font-family":
			if family := firstFamily(p.Values()); family != "" {
				s.family = family
			}
		}
	}
	return s
}

func declaredWeight(inherited, weight string) string {
	switch strings.ToLower(weight) {
	case "bolder", "lighter":
		return relativeWeight(inherited, strings.ToLower(weight))
	case "inherit":
		return inherited
	}
	return fontset.WeightNumber(weight)
}

// firstFamily returns the first family of a font-family value list.
func firstFamily(vals []css.Token) string {
	names := []string{}
	for _, val := range vals {
		switch val.TokenType {
		case css.StringToken:
			if len(names) == 0 && 2 <= len(val.Data) {
				return string(val.Data[1 : len(val.Data)-1])
			}
		case css.IdentToken:
			names = append(names, string(val.Data))
		case css.CommaToken:
			if 0 < len(names) {
				return strings.Join(names, " ")
			}
		}
	}
	return strings.Join(names, " ")
}
