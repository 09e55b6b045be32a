package shop

import (
	"fmt"
	"strings"

	"vitrine/internal/money"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"
)

// chromeLines is the height taken by header, selection, notices and footer.
const chromeLines = 8

// View renders the model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.pane.View(),
		m.styles.RenderDivider(m.width),
		m.renderSelection(),
	)
	if m.drawerOpen {
		body = m.renderWithDrawer(body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderNotices(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	name := m.cfg.StoreName
	if name == "" {
		name = "Vitrine"
	}
	badge := m.styles.Badge.Render(fmt.Sprintf("Cart %d", m.count))
	status := ""
	if m.busy > 0 {
		status = " " + m.spinner.View()
	}
	left := m.styles.Header.Render(name)
	return lipgloss.JoinHorizontal(lipgloss.Center, left, " ", m.search.View(), " ", badge, status)
}

func (m Model) renderSelection() string {
	p, ok := m.selectedProduct()
	if !ok {
		if m.query == "" {
			return m.styles.Muted.Render("Press / to search the catalog.")
		}
		return m.styles.Muted.Render("No product selected.")
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render(p.Name))
	sb.WriteString("  ")
	if p.PriceAfterDiscount.IsPositive() && p.PriceAfterDiscount.LessThan(p.Price) {
		sb.WriteString(m.styles.Was.Render(money.Format(p.Price, m.cfg.Currency)))
		sb.WriteString(" ")
	}
	sb.WriteString(m.styles.Price.Render(money.Format(p.EffectivePrice(), m.cfg.Currency)))
	fmt.Fprintf(&sb, "  qty [-] %d [+]", m.quantity)

	if opts := m.selectedOptions(); len(opts) > 0 {
		parts := make([]string, 0, len(p.Options))
		for _, o := range p.Options {
			if v, ok := opts[o.Name]; ok {
				parts = append(parts, o.Name+": "+v)
			}
		}
		sb.WriteString("  ")
		sb.WriteString(m.styles.Muted.Render(strings.Join(parts, ", ")))
	}
	if p.Stock <= 0 {
		sb.WriteString("  ")
		sb.WriteString(m.styles.Warning.Render("out of stock"))
	}
	return sb.String()
}

// renderWithDrawer dims the page and lays the drawer over its right side.
func (m Model) renderWithDrawer(page string) string {
	dw := m.drawerWidth()
	left := m.width - dw
	if left < 0 {
		left = 0
	}
	lines := strings.Split(page, "\n")
	height := len(lines)
	dimmed := make([]string, len(lines))
	for i, l := range lines {
		dimmed[i] = m.styles.Overlay.Render(ansi.Strip(ansi.Truncate(l, left, "")))
	}
	overlay := lipgloss.NewStyle().Width(left).Render(strings.Join(dimmed, "\n"))

	drawer := m.styles.Drawer.
		Width(dw - m.styles.Drawer.GetHorizontalBorderSize()).
		Height(height).
		Render(m.renderDrawer())
	return lipgloss.JoinHorizontal(lipgloss.Top, overlay, drawer)
}

func (m Model) renderDrawer() string {
	cur := m.cfg.Currency
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(fmt.Sprintf("Your cart (%d)", m.count)))
	sb.WriteString("\n")

	if len(m.items) == 0 {
		sb.WriteString(m.styles.Muted.Render("Your cart is empty."))
		sb.WriteString("\n")
	}
	for i, it := range m.items {
		name := it.Product.Name
		if name == "" {
			name = "Item " + string(it.ID)
		}
		line := fmt.Sprintf("%s  x%d  %s", name, it.Quantity, money.Format(it.LineTotal(), cur))
		if i == m.itemCursor {
			line = m.styles.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sum := m.summary
	if snap, ok := m.ctrl.LastSnapshot(); ok {
		if t := snap.Totals(); !t.Total.IsZero() {
			sum.Subtotal, sum.Discount, sum.Shipping, sum.Tax, sum.Total =
				t.Subtotal, t.Discount, t.Shipping, t.Tax, t.Total
		}
	}
	writeTotal(&sb, m, "Subtotal", sum.Subtotal, cur)
	if d := sum.Discount.Abs(); d.IsPositive() {
		writeTotal(&sb, m, "Discount", d.Neg(), cur)
	}
	writeTotal(&sb, m, "Shipping", sum.Shipping, cur)
	writeTotal(&sb, m, "Tax", sum.Tax, cur)
	sb.WriteString(m.styles.Bold.Render("Total  " + money.Format(sum.Total, cur)))
	sb.WriteString("\n\n")

	switch m.focus {
	case focusCoupon:
		sb.WriteString(m.coupon.View())
	case focusConfirmRemove:
		sb.WriteString(m.styles.Warning.Render("Are you sure you want to remove this item? (y/n)"))
	default:
		if m.checkout != "" {
			sb.WriteString(m.styles.Info.Render("Checkout: " + m.checkout))
		} else {
			sb.WriteString(m.styles.Muted.Render("enter: checkout"))
		}
	}
	return sb.String()
}

func writeTotal(sb *strings.Builder, m Model, label string, v decimal.Decimal, currency string) {
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%-9s", label)))
	sb.WriteString(money.Format(v, currency))
	sb.WriteString("\n")
}

func (m Model) renderNotices() string {
	if len(m.notices) == 0 {
		return ""
	}
	out := make([]string, len(m.notices))
	for i, n := range m.notices {
		out[i] = m.styles.Notification(n)
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, out...))
}

func (m Model) renderFooter() string {
	var help string
	switch {
	case m.focus == focusSearch:
		help = "type to search • enter/esc: done"
	case m.focus == focusCoupon:
		help = "enter: apply coupon • esc: cancel"
	case m.focus == focusConfirmRemove:
		help = "y: remove • any key: keep"
	case m.drawerOpen:
		help = "j/k: item • u/d: qty • x: remove • p: coupon • enter: checkout • esc: close"
	default:
		help = "/: search • j/k: product • -/+: qty • o: option • a: add • c: cart • r: reload • q: quit"
	}
	return m.styles.Footer.Render(help)
}
