package engine

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/catalog"
)

// productFetchChunk bounds one catalog request; chunks fetch concurrently.
const productFetchChunk = 25

// RemoveInvalidItems checks every top-level line against current catalog
// data and removes the ones that can no longer be purchased: inactive
// products, products without SKUs, not-for-individual-sale products, and
// lines whose matched SKU is inactive or unpriced. Configurable lines run
// the recursive validity check; unlinked add-on children are detached
// individually while any other invalid sub-item invalidates the whole line.
//
// Returns whether anything was removed. Removals notify the shopper with
// each display name once and unconditionally force a re-price. The whole
// pass is suspended while the order is in a checkout-locked state. Running
// it on a tree free of invalid items is a no-op.
func (e *Engine) RemoveInvalidItems(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.OrderState.SuppressesMutations() {
		return false, nil
	}
	if e.state.Empty() {
		return false, nil
	}

	products, err := e.fetchProductData(ctx)
	if err != nil {
		return false, errors.Wrap(err, "fetch product data")
	}

	report := &cart.ValidityReport{}
	kept := e.state.Items[:0]
	removedAny := false

	for _, item := range e.state.Items {
		if !topLevelValid(products, item, report) {
			removedAny = true
			continue
		}

		if len(item.ChildItems) > 0 {
			sub := &cart.ValidityReport{}
			cart.CheckValidity(products, item, sub)
			for _, addon := range sub.UnlinkedAddons {
				cart.RemoveChildItem(item, addon.CommerceItemID)
				removedAny = true
			}
			for _, name := range sub.InvalidNames {
				report.AddName(name)
			}
			if sub.LineInvalid {
				removedAny = true
				continue
			}
		}
		kept = append(kept, item)
	}
	e.state.Items = kept

	if !removedAny {
		return false, nil
	}

	e.notifier.Notify(Notification{Kind: NoteItemRemoved, Names: report.InvalidNames})
	e.events.Push(cart.NewRepriceEvent())
	if err := e.markDirtyLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// topLevelValid checks whether a top-level line survives at all; failures
// record the display name in the report.
func topLevelValid(products map[string]*catalog.Product, item *cart.LineItem, report *cart.ValidityReport) bool {
	p := products[item.ProductID]
	if !p.Sellable() {
		report.AddName(item.DisplayName)
		return false
	}
	sku := p.SKU(item.CatalogRefID)
	if sku == nil || !sku.Active || !sku.Priced() {
		report.AddName(item.DisplayName)
		return false
	}
	return true
}

// fetchProductData loads catalog data for every product in the forest,
// chunked and fetched concurrently.
func (e *Engine) fetchProductData(ctx context.Context) (map[string]*catalog.Product, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range e.state.Items {
		cart.Walk(item, func(node *cart.LineItem) bool {
			if !seen[node.ProductID] {
				seen[node.ProductID] = true
				ids = append(ids, node.ProductID)
			}
			return true
		})
	}

	var (
		mu  sync.Mutex
		out = make(map[string]*catalog.Product, len(ids))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(ids); start += productFetchChunk {
		chunk := ids[start:min(start+productFetchChunk, len(ids))]
		g.Go(func() error {
			fetched, err := e.catalog.ProductData(ctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, p := range fetched {
				out[id] = p
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
