// Package cart implements the storefront cart interaction controller: it keeps
// the cart drawer state and the visible item counter consistent with the
// remote cart, and issues cart mutations through the storefront HTTP API.
package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"vitrine/internal/money"

	"github.com/shopspring/decimal"
)

// ID is a backend identifier. The API emits ids as JSON numbers or strings;
// both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Image is a product image reference.
type Image struct {
	URL string `json:"url"`
}

// OptionValue is one selectable value of a product option.
type OptionValue struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ProductOption is a configurable product dimension such as Color.
type ProductOption struct {
	ID     ID            `json:"id"`
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Values []OptionValue `json:"values"`
}

// Product is the catalog view of a product as returned by search and
// embedded in cart items.
type Product struct {
	ID                 ID              `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	URL                string          `json:"url,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Discount           decimal.Decimal `json:"discount"`
	PriceAfterDiscount decimal.Decimal `json:"price_after_discount"`
	Stock              int             `json:"stock"`
	Rating             float64         `json:"rating"`
	ReviewsCount       int             `json:"reviews_count"`
	Image              Image           `json:"image"`
	Images             []Image         `json:"images,omitempty"`
	Options            []ProductOption `json:"options,omitempty"`
}

// UnmarshalJSON reads the price fields leniently: a price the client cannot
// read is zero rather than a failed response.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		Price              json.RawMessage `json:"price"`
		Discount           json.RawMessage `json:"discount"`
		PriceAfterDiscount json.RawMessage `json:"price_after_discount"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Price = money.Lenient(aux.Price)
	p.Discount = money.Lenient(aux.Discount)
	p.PriceAfterDiscount = money.Lenient(aux.PriceAfterDiscount)
	return nil
}

// EffectivePrice is the sale price when one is set, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PriceAfterDiscount.IsPositive() {
		return p.PriceAfterDiscount
	}
	return p.Price
}

// Item is one cart line. It is created, mutated and destroyed server-side;
// the client only renders it.
type Item struct {
	ID       ID                `json:"id"`
	Product  Product           `json:"product"`
	Quantity int               `json:"quantity"`
	Price    decimal.Decimal   `json:"price"`
	Options  map[string]string `json:"options,omitempty"`
}

// UnmarshalJSON reads the unit price leniently.
func (i *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Price = money.Lenient(aux.Price)
	return nil
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Snapshot is the server-authoritative cart returned after each mutation.
// Only the number of items drives controller state; items and totals are
// kept raw and decoded for display on demand.
type Snapshot struct {
	Items        []json.RawMessage `json:"items"`
	Subtotal     json.RawMessage   `json:"subtotal,omitempty"`
	Discount     json.RawMessage   `json:"discount,omitempty"`
	ShippingCost json.RawMessage   `json:"shipping_cost,omitempty"`
	Tax          json.RawMessage   `json:"tax,omitempty"`
	Total        json.RawMessage   `json:"total,omitempty"`
}

// Totals are a snapshot's amounts as far as they could be read.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Totals reads the amounts for display. Unreadable amounts are zero.
func (s Snapshot) Totals() Totals {
	return Totals{
		Subtotal: money.Lenient(s.Subtotal),
		Discount: money.Lenient(s.Discount),
		Shipping: money.Lenient(s.ShippingCost),
		Tax:      money.Lenient(s.Tax),
		Total:    money.Lenient(s.Total),
	}
}

// ItemCount is the number of cart lines, the value shown on the counter.
func (s Snapshot) ItemCount() int {
	return len(s.Items)
}

// DecodeItems decodes the raw items for display. Items that fail to decode
// are returned as zero Items so that positions stay aligned with the counter.
func (s Snapshot) DecodeItems() ([]Item, error) {
	items := make([]Item, len(s.Items))
	var firstErr error
	for i, raw := range s.Items {
		if err := json.Unmarshal(raw, &items[i]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, firstErr
}

// DrawerState is the visibility of the cart drawer overlay.
type DrawerState int

const (
	DrawerClosed DrawerState = iota
	DrawerOpen
)

func (s DrawerState) String() string {
	if s == DrawerOpen {
		return "open"
	}
	return "closed"
}
