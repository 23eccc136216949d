package domain

import "github.com/shopspring/decimal"

// Product is a catalog item as seen by the point of sale.
type Product struct {
	ID             string          `json:"id"`
	CategoryID     string          `json:"category_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Cost           decimal.Decimal `json:"cost"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Image          string          `json:"image,omitempty"`
	Barcode        string          `json:"barcode,omitempty"`
	Variants       []Variant       `json:"variants"`
	ModifierGroups []ModifierGroup `json:"modifier_groups"`
	IsActive       bool            `json:"is_active"`
	StationTags    []string        `json:"station_tags"`
}

// Variant is a sellable variation of a product (size, portion).
type Variant struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ModifierGroup groups the modifiers a guest can choose for a product.
type ModifierGroup struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MinSelect int        `json:"min_select"`
	MaxSelect int        `json:"max_select"`
	Modifiers []Modifier `json:"modifiers"`
}

// Modifier is a single add-on or change to a product.
type Modifier struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
