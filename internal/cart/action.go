package cart

import (
	"fmt"
	"strings"
)

// Kind names a cart command.
type Kind string

const (
	KindAdd    Kind = "add"
	KindUpdate Kind = "update"
	KindRemove Kind = "remove"
	KindCoupon Kind = "coupon"
)

// Action is one of AddItem, UpdateItem, RemoveItem or ApplyCoupon.
type Action interface {
	Kind() Kind
	// Target is the id or code the action applies to, for logs and the journal.
	Target() string
	Validate() error
}

// AddItem adds Quantity units of a product with the selected option values.
type AddItem struct {
	ProductID string
	Quantity  int
	Options   map[string]string
}

func (a AddItem) Kind() Kind     { return KindAdd }
func (a AddItem) Target() string { return a.ProductID }

// Validate requires a product id and a positive quantity. Stock limits are
// the server's concern.
func (a AddItem) Validate() error {
	if strings.TrimSpace(a.ProductID) == "" {
		return fmt.Errorf("%w: product id required", ErrInvalidAction)
	}
	if a.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be a positive integer, got %d", ErrInvalidAction, a.Quantity)
	}
	return nil
}

// UpdateItem sets the quantity of an existing cart line. Callers must not
// send quantities below 1.
type UpdateItem struct {
	ItemID   string
	Quantity int
}

func (a UpdateItem) Kind() Kind     { return KindUpdate }
func (a UpdateItem) Target() string { return a.ItemID }

func (a UpdateItem) Validate() error {
	if strings.TrimSpace(a.ItemID) == "" {
		return fmt.Errorf("%w: item id required", ErrInvalidAction)
	}
	return nil
}

// RemoveItem deletes a cart line.
type RemoveItem struct {
	ItemID string
}

func (a RemoveItem) Kind() Kind     { return KindRemove }
func (a RemoveItem) Target() string { return a.ItemID }

func (a RemoveItem) Validate() error {
	if strings.TrimSpace(a.ItemID) == "" {
		return fmt.Errorf("%w: item id required", ErrInvalidAction)
	}
	return nil
}

// ApplyCoupon applies a discount code. The code is trimmed before sending.
type ApplyCoupon struct {
	Code string
}

func (a ApplyCoupon) Kind() Kind     { return KindCoupon }
func (a ApplyCoupon) Target() string { return strings.TrimSpace(a.Code) }

func (a ApplyCoupon) Validate() error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("%w: coupon code required", ErrInvalidAction)
	}
	return nil
}
