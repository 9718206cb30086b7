// Package inventory reads inventory CSV exports.
package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/atim-dev/atim/internal/models"
)

// ErrNoProductColumn is returned when the header lacks a product name column.
var ErrNoProductColumn = errors.New("missing product_name column")

// Accepted header spellings per field.
var headerAliases = map[string]string{
	"product_name":  "product_name",
	"product":       "product_name",
	"name":          "product_name",
	"sku":           "sku",
	"category":      "category",
	"current_stock": "current_stock",
	"stock":         "current_stock",
	"quantity":      "current_stock",
	"reorder_point": "reorder_point",
	"reorder_level": "reorder_point",
	"unit_price":    "unit_price",
	"price":         "unit_price",
}

// LoadFile parses the CSV file at path.
func LoadFile(path string) ([]models.InventoryItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a header row followed by one item per row. Unknown columns are
// ignored; empty numeric cells read as zero.
func Parse(r io.Reader) ([]models.InventoryItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []models.InventoryItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if field, ok := headerAliases[key]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["product_name"]; !ok {
		return nil, ErrNoProductColumn
	}

	items := []models.InventoryItem{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		item, err := parseRow(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: invalid item: %w", line, err)
		}
		items = append(items, item)
	}

	return items, nil
}

func parseRow(record []string, columns map[string]int) (models.InventoryItem, error) {
	cell := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	item := models.InventoryItem{
		ProductName: cell("product_name"),
		SKU:         cell("sku"),
		Category:    cell("category"),
	}

	var err error
	if item.CurrentStock, err = parseInt(cell("current_stock")); err != nil {
		return item, fmt.Errorf("current_stock: %w", err)
	}
	if item.ReorderPoint, err = parseInt(cell("reorder_point")); err != nil {
		return item, fmt.Errorf("reorder_point: %w", err)
	}
	if item.UnitPrice, err = parseFloat(cell("unit_price")); err != nil {
		return item, fmt.Errorf("unit_price: %w", err)
	}
	return item, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Spreadsheet exports often write whole numbers as "12.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Summarize totals the inventory.
func Summarize(items []models.InventoryItem) models.InventorySummary {
	var s models.InventorySummary
	s.TotalItems = len(items)
	for _, item := range items {
		if item.LowStock() {
			s.LowStockItems++
		}
		s.TotalValue += float64(item.CurrentStock) * item.UnitPrice
	}
	return s
}

// LowStock returns items at or below their reorder point, in input order.
func LowStock(items []models.InventoryItem) []models.InventoryItem {
	low := []models.InventoryItem{}
	for _, item := range items {
		if item.LowStock() {
			low = append(low, item)
		}
	}
	return low
}

// ProductNames returns the product name of every item, in input order.
func ProductNames(items []models.InventoryItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.ProductName
	}
	return names
}
