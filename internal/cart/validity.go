package cart

import (
	"github.com/storeside/cartengine/internal/catalog"
)

// ValidityReport accumulates the outcome of a recursive catalog validity
// check over one top-level line. The three buckets carry different removal
// and notification policies:
//
//   - InvalidNames: the product itself is gone or inactive;
//   - InvalidSKUs: the product exists but the matched SKU is inactive or has
//     no price;
//   - UnlinkedAddons: add-on children no longer linked to their parent
//     product, detached individually rather than invalidating the line.
//
// LineInvalid is set when a non-add-on sub-item fails the check: a broken
// configuration sub-item invalidates the entire top-level line.
type ValidityReport struct {
	InvalidNames   []string
	InvalidSKUs    []string
	UnlinkedAddons []*LineItem
	LineInvalid    bool
}

// AddName records a display name once, even when a line matches several
// catalog entries.
func (r *ValidityReport) AddName(name string) {
	for _, existing := range r.InvalidNames {
		if existing == name {
			return
		}
	}
	r.InvalidNames = append(r.InvalidNames, name)
}

func (r *ValidityReport) addSKU(id string) {
	for _, existing := range r.InvalidSKUs {
		if existing == id {
			return
		}
	}
	r.InvalidSKUs = append(r.InvalidSKUs, id)
}

// CheckValidity walks node's child tree comparing each child against current
// catalog data and fills the report. The products map is keyed by product id;
// a missing entry means the product no longer exists.
func CheckValidity(products map[string]*catalog.Product, node *LineItem, rep *ValidityReport) {
	if node == nil || rep == nil {
		return
	}
	parentProduct := products[node.ProductID]

	for _, child := range node.ChildItems {
		childProduct := products[child.ProductID]

		if child.IsAddon {
			if !addonStillValid(parentProduct, childProduct, child) {
				rep.UnlinkedAddons = append(rep.UnlinkedAddons, child)
				rep.AddName(child.DisplayName)
			}
			CheckValidity(products, child, rep)
			continue
		}

		switch {
		case childProduct == nil || !childProduct.Active:
			rep.LineInvalid = true
			rep.AddName(child.DisplayName)
		case !skuValid(childProduct, child.CatalogRefID):
			rep.LineInvalid = true
			rep.AddName(child.DisplayName)
			rep.addSKU(child.CatalogRefID)
		}
		CheckValidity(products, child, rep)
	}
}

func addonStillValid(parent, addon *catalog.Product, child *LineItem) bool {
	if parent == nil || addon == nil || !addon.Active {
		return false
	}
	if !parent.AllowsAddon(child.ProductID, child.CatalogRefID) {
		return false
	}
	return skuValid(addon, child.CatalogRefID)
}

func skuValid(p *catalog.Product, catalogRefID string) bool {
	sku := p.SKU(catalogRefID)
	return sku != nil && sku.Active && sku.Priced()
}
