// Package reconcile compares two catalog snapshots and finds the products
// that only the source catalog offers.
package reconcile

import (
	"sort"
	"strings"

	"catalogsync/internal/model"
)

// IsCandidate reports whether p may be proposed as new: it carries a real
// SKU, a positive price and stock on hand.
func IsCandidate(p model.Product) bool {
	if p.SKU == "" ||
		strings.HasPrefix(p.SKU, model.PlaceholderSKUPrefix) ||
		strings.HasPrefix(p.SKU, model.ErrorSKUPrefix) {
		return false
	}

	return p.Price > 0 && p.Stock > 0
}

// Reconcile returns the candidate products of source whose SKU does not
// appear anywhere in reference, most recently modified first.
//
// When source lists a SKU more than once only its most recently modified
// record is considered, so a SKU appears at most once in the result.
func Reconcile(source, reference model.Snapshot) model.NoveltySet {
	known := reference.SKUs()

	set := model.NoveltySet{Products: []model.Product{}}
	for _, p := range source.Latest() {
		if !IsCandidate(p) {
			continue
		}

		set.Candidates++
		if _, ok := known[p.SKU]; ok {
			set.Known++
			continue
		}

		set.Products = append(set.Products, p)
	}

	sort.SliceStable(set.Products, func(i, j int) bool {
		return set.Products[i].DateModified.After(set.Products[j].DateModified)
	})

	return set
}
