// Package catalog holds the slice of catalog data the cart engine reads:
// product/SKU activity flags, pricing presence, and add-on linkage. It is a
// projection of the remote catalog service's responses, not a catalog store.
package catalog

import (
	"github.com/shopspring/decimal"
)

// SKU is one sellable variant of a product.
type SKU struct {
	ID        string
	Active    bool
	ListPrice *decimal.Decimal
}

// Priced reports whether the SKU carries a list price.
func (s *SKU) Priced() bool {
	return s != nil && s.ListPrice != nil
}

// AddonLink describes an add-on product currently linked to a parent product.
type AddonLink struct {
	ProductID string
	SKUIDs    []string
}

// Product is the catalog view of a purchasable product.
type Product struct {
	ID                   string
	DisplayName          string
	Active               bool
	NotForIndividualSale bool
	SKUs                 []SKU
	SelectedAddons       []AddonLink
}

// SKU returns the product's SKU with the given catalog ref id, or nil.
func (p *Product) SKU(catalogRefID string) *SKU {
	if p == nil {
		return nil
	}
	for i := range p.SKUs {
		if p.SKUs[i].ID == catalogRefID {
			return &p.SKUs[i]
		}
	}
	return nil
}

// AllowsAddon reports whether the given product/SKU pair is still linked to
// this product as a selectable add-on.
func (p *Product) AllowsAddon(productID, catalogRefID string) bool {
	if p == nil {
		return false
	}
	for _, link := range p.SelectedAddons {
		if link.ProductID != productID {
			continue
		}
		if len(link.SKUIDs) == 0 {
			return true
		}
		for _, id := range link.SKUIDs {
			if id == catalogRefID {
				return true
			}
		}
	}
	return false
}

// HasAddons reports whether the product declares any selectable add-ons.
func (p *Product) HasAddons() bool {
	return p != nil && len(p.SelectedAddons) > 0
}

// Sellable reports whether a top-level cart line for this product can remain
// in the cart at all: the product must be active, carry at least one SKU,
// and be sold individually.
func (p *Product) Sellable() bool {
	return p != nil && p.Active && len(p.SKUs) > 0 && !p.NotForIndividualSale
}
