package document

import (
	"testing"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_Totals(t *testing.T) {
	c := Content{
		Items: []LineItem{
			{Description: "Design", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			{Description: "Hosting", Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.RequireFromString("20.10")},
		},
		Currency: "USD",
		TaxRate:  decimal.NewFromInt(18),
		Discount: decimal.NewFromInt(10),
	}

	totals := c.Totals()

	assert.Equal(t, "130.15", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", totals.Discount.StringFixed(2))
	// (130.15 - 10) * 18% = 21.627
	assert.Equal(t, "21.63", totals.Tax.StringFixed(2))
	assert.Equal(t, "141.78", totals.Total.StringFixed(2))
}

func TestContent_Normalize(t *testing.T) {
	c, err := Content{Currency: "eur"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Currency.String())

	c, err = Content{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "INR", c.Currency.String())

	_, err = Content{Currency: "EURO"}.Normalize()
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestContent_Validate(t *testing.T) {
	item := LineItem{Description: "Design", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}

	tests := []struct {
		name    string
		content Content
	}{
		{"empty description", Content{Items: []LineItem{{Quantity: decimal.NewFromInt(1)}}}},
		{"zero quantity", Content{Items: []LineItem{{Description: "x", Quantity: decimal.Zero}}}},
		{"negative price", Content{Items: []LineItem{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-1)}}}},
		{"tax above 100", Content{Items: []LineItem{item}, TaxRate: decimal.NewFromInt(101)}},
		{"negative discount", Content{Items: []LineItem{item}, Discount: decimal.NewFromInt(-1)}},
		{"discount above subtotal", Content{Items: []LineItem{item}, Discount: decimal.NewFromInt(101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.content.Validate(), shared.ErrInvalidInput)
		})
	}

	assert.NoError(t, Content{Items: []LineItem{item}, Discount: decimal.NewFromInt(100)}.Validate())
}
