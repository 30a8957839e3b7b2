package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one billed line
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Amount returns Quantity * UnitPrice
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Party is the sender or recipient of a document
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// Content is the editable body of a document
type Content struct {
	Items     []LineItem           `json:"items"`
	From      Party                `json:"from"`
	To        Party                `json:"to"`
	Currency  valueobject.Currency `json:"currency"`
	TaxRate   decimal.Decimal      `json:"tax_rate"` // percent
	Discount  decimal.Decimal      `json:"discount"` // absolute amount
	Notes     string               `json:"notes,omitempty"`
	IssueDate *time.Time           `json:"issue_date,omitempty"`
	DueDate   *time.Time           `json:"due_date,omitempty"`
}

// Totals is the computed money summary of a document
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Normalize fills defaults and canonicalizes the currency
func (c Content) Normalize() (Content, error) {
	cur := c.Currency
	if cur == "" {
		cur = valueobject.DefaultCurrency
	}
	parsed, err := valueobject.ParseCurrency(string(cur))
	if err != nil {
		return Content{}, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	c.Currency = parsed
	c.From.Name = strings.TrimSpace(c.From.Name)
	c.To.Name = strings.TrimSpace(c.To.Name)
	return c, c.Validate()
}

// Validate checks items, tax and discount
func (c Content) Validate() error {
	for i, item := range c.Items {
		if strings.TrimSpace(item.Description) == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Item %d: description cannot be empty", i+1))
		}
		if !item.Quantity.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Item %d: quantity must be positive", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Item %d: unit price cannot be negative", i+1))
		}
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(hundred) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tax rate must be between 0 and 100")
	}
	if c.Discount.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot be negative")
	}
	if c.Discount.GreaterThan(c.subtotal()) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot exceed subtotal")
	}
	if c.IssueDate != nil && c.DueDate != nil && c.DueDate.Before(*c.IssueDate) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Due date cannot be before issue date")
	}
	return nil
}

func (c Content) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// Totals computes subtotal, discount, tax on the discounted amount, and total,
// rounded to the currency's minor unit.
func (c Content) Totals() Totals {
	scale := c.Currency.MinorUnitScale()
	subtotal := c.subtotal()
	taxable := subtotal.Sub(c.Discount)
	tax := taxable.Mul(c.TaxRate).Div(hundred)
	return Totals{
		Subtotal: subtotal.Round(scale),
		Discount: c.Discount.Round(scale),
		Tax:      tax.Round(scale),
		Total:    taxable.Add(tax).Round(scale),
	}
}

// Clone returns a deep copy so converted documents never share slices or pointers
func (c Content) Clone() Content {
	cp := c
	if c.Items != nil {
		cp.Items = make([]LineItem, len(c.Items))
		copy(cp.Items, c.Items)
	}
	if c.IssueDate != nil {
		d := *c.IssueDate
		cp.IssueDate = &d
	}
	if c.DueDate != nil {
		d := *c.DueDate
		cp.DueDate = &d
	}
	return cp
}
