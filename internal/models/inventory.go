// Package models defines the core domain entities: inventory items, trend records and reports.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// InventoryItem is one row of the inventory export.
type InventoryItem struct {
	ProductName  string  `json:"product_name" validate:"required"`
	SKU          string  `json:"sku,omitempty"`
	Category     string  `json:"category,omitempty"`
	CurrentStock int     `json:"current_stock" validate:"gte=0"`
	ReorderPoint int     `json:"reorder_point" validate:"gte=0"`
	UnitPrice    float64 `json:"unit_price" validate:"gte=0"`
}

// LowStock reports whether the item is at or below its reorder point.
func (i InventoryItem) LowStock() bool {
	return i.CurrentStock <= i.ReorderPoint
}

// Urgent reports whether stock has fallen below half the reorder point.
func (i InventoryItem) Urgent() bool {
	return float64(i.CurrentStock) < float64(i.ReorderPoint)*0.5
}

// Validate checks item field constraints.
func (i *InventoryItem) Validate() error {
	if strings.TrimSpace(i.ProductName) == "" {
		return errors.New("product name must not be empty")
	}
	if err := validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s must be %s %s", verrs[0].Field(), verrs[0].Tag(), verrs[0].Param())
		}
		return err
	}
	return nil
}

// InventorySummary is passed through to reports without recomputation.
type InventorySummary struct {
	TotalItems    int     `json:"total_items"`
	LowStockItems int     `json:"low_stock_items"`
	TotalValue    float64 `json:"total_value"`
}
