package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	id, name, price, category string
	stock                     int
}

var demoCatalog = []seedProduct{
	{id: "sku-mug", name: "Ceramic Mug", price: "12.50", category: "kitchen", stock: 40},
	{id: "sku-kettle", name: "Gooseneck Kettle", price: "64.00", category: "kitchen", stock: 6},
	{id: "sku-beans", name: "Single Origin Beans 250g", price: "18.90", category: "coffee", stock: 120},
	{id: "sku-grinder", name: "Hand Grinder", price: "89.00", category: "coffee", stock: 3},
	{id: "sku-filter", name: "Paper Filters (100)", price: "5.25", category: "coffee", stock: 0},
}

// seedCatalog inserts the demo products, skipping any that already exist.
func seedCatalog(ctx context.Context, w catalog.Writer) error {
	for _, sp := range demoCatalog {
		p, err := catalog.New(sp.id, sp.name, decimal.RequireFromString(sp.price), sp.stock)
		if err != nil {
			return fmt.Errorf("seed %s: %w", sp.id, err)
		}
		p.Category = sp.category
		if err := w.Create(ctx, p); err != nil && !errors.Is(err, catalog.ErrConflict) {
			return fmt.Errorf("seed %s: %w", sp.id, err)
		}
	}
	return nil
}
