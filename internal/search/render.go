package search

import (
	"fmt"
	"regexp"
	"strings"

	"vitrine/internal/cart"
	"vitrine/internal/money"

	"github.com/charmbracelet/glamour"
	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]+`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// RenderMarkdown lists products as markdown. Descriptions may contain HTML
// and are reduced to inline markdown.
func RenderMarkdown(query string, products []cart.Product, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	if len(products) == 0 {
		sb.WriteString("_No products found._\n")
		return sb.String()
	}
	for i, p := range products {
		fmt.Fprintf(&sb, "%d. **%s** ", i+1, p.Name)
		price := p.EffectivePrice()
		if price.LessThan(p.Price) {
			fmt.Fprintf(&sb, "~~%s~~ %s", money.Format(p.Price, currency), money.Format(price, currency))
		} else {
			sb.WriteString(money.Format(price, currency))
		}
		if p.Stock <= 0 {
			sb.WriteString(" _(out of stock)_")
		}
		sb.WriteString("\n")
		if desc := DescriptionMarkdown(p.Description); desc != "" {
			fmt.Fprintf(&sb, "   %s\n", strings.ReplaceAll(desc, "\n", " "))
		}
	}
	return sb.String()
}

// Render runs RenderMarkdown through glamour at the given wrap width.
func Render(query string, products []cart.Product, currency string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(RenderMarkdown(query, products, currency))
	if err != nil {
		return "", fmt.Errorf("render results: %w", err)
	}
	return out, nil
}

// DescriptionMarkdown converts a product description fragment to markdown.
// Unparseable input is returned trimmed.
func DescriptionMarkdown(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type: html.ElementNode,
		Data: "div",
	})
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	var sb strings.Builder
	for _, n := range nodes {
		writeMarkdown(n, &sb, 0)
	}
	return cleanMarkdown(sb.String())
}

func writeMarkdown(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		sb.WriteString(whitespacePattern.ReplaceAllString(n.Data, " "))
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "iframe", "svg":
			return
		case "p", "div":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "strong", "b":
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeMarkdown(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "strong", "b":
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
		}
	}
}

func cleanMarkdown(s string) string {
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
