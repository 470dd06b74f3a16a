package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy pulls one field out of a listing element. It returns "" when it cannot.
type Strategy func(s *goquery.Selection) string

// FirstOf tries strategies in order and returns the first non-empty result.
func FirstOf(strategies ...Strategy) Strategy {
	return func(s *goquery.Selection) string {
		for _, strategy := range strategies {
			if v := strategy(s); v != "" {
				return v
			}
		}
		return ""
	}
}

// Text returns the collapsed text of the first element matching selector.
func Text(selector string) Strategy {
	return func(s *goquery.Selection) string {
		return collapse(s.Find(selector).First().Text())
	}
}

// Attr returns an attribute of the first element matching selector.
func Attr(selector, attr string) Strategy {
	return func(s *goquery.Selection) string {
		v, _ := s.Find(selector).First().Attr(attr)
		return strings.TrimSpace(v)
	}
}

// Line returns the n-th visible text line of the element itself.
func Line(n int) Strategy {
	return func(s *goquery.Selection) string {
		lines := textLines(s)
		if n < len(lines) {
			return lines[n]
		}
		return ""
	}
}

// LineWhere returns the first text line accepted by keep.
func LineWhere(keep func(string) bool) Strategy {
	return func(s *goquery.Selection) string {
		for _, l := range textLines(s) {
			if keep(l) {
				return l
			}
		}
		return ""
	}
}

// Const always returns v.
func Const(v string) Strategy {
	return func(*goquery.Selection) string { return v }
}

// textLines returns the non-empty text nodes under s in document order.
func textLines(s *goquery.Selection) []string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := collapse(c.Text()); t != "" {
					lines = append(lines, t)
				}
			case "script", "style", "noscript":
			default:
				walk(c)
			}
		})
	}
	walk(s)
	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
