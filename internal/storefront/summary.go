package storefront

import (
	"io"
	"strconv"
	"strings"

	"vitrine/internal/money"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// Summary is what a rendered page says about the cart.
type Summary struct {
	// Count is the header counter; HasCount is false when the page has none.
	Count    int
	HasCount bool

	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var totalAttrs = map[string]func(*Summary) *decimal.Decimal{
	"data-cart-subtotal": func(s *Summary) *decimal.Decimal { return &s.Subtotal },
	"data-cart-discount": func(s *Summary) *decimal.Decimal { return &s.Discount },
	"data-cart-shipping": func(s *Summary) *decimal.Decimal { return &s.Shipping },
	"data-cart-tax":      func(s *Summary) *decimal.Decimal { return &s.Tax },
	"data-cart-total":    func(s *Summary) *decimal.Decimal { return &s.Total },
}

// ParseSummary reads the first `.cart-count` element and any element carrying
// a data-cart-* total attribute. Totals come from the attribute value when it
// is numeric, otherwise from the element text with currency decoration removed.
func ParseSummary(r io.Reader) (Summary, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	walk(doc, &sum)
	return sum, nil
}

func walk(n *html.Node, sum *Summary) {
	if n.Type == html.ElementNode {
		if !sum.HasCount && hasClass(n, "cart-count") {
			if c, err := strconv.Atoi(strings.TrimSpace(textContent(n))); err == nil {
				sum.Count = c
				sum.HasCount = true
			}
		}
		for _, attr := range n.Attr {
			field, ok := totalAttrs[attr.Key]
			if !ok {
				continue
			}
			if v, ok := money.Parse(attr.Val); ok {
				*field(sum) = v
			} else if v, ok := money.Parse(textContent(n)); ok {
				*field(sum) = v
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sum)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
