package model

import (
	"time"
)

// Snapshot is the normalized content of one catalog produced by a single
// fetch pass. Products keeps the order the API returned, duplicates included.
// A Snapshot must not be mutated after it has been built.
type Snapshot struct {
	Catalog   string    `json:"catalog"`
	FetchedAt time.Time `json:"fetched_at"`
	Products  []Product `json:"products"`

	index map[string]int
}

// NewSnapshot builds a snapshot over products.
func NewSnapshot(catalog string, fetchedAt time.Time, products []Product) Snapshot {
	s := Snapshot{
		Catalog:   catalog,
		FetchedAt: fetchedAt,
		Products:  products,
	}
	s.index = buildIndex(products)

	return s
}

// Len returns the number of records, duplicates included.
func (s Snapshot) Len() int {
	return len(s.Products)
}

// Lookup returns the most recently modified record carrying sku.
func (s Snapshot) Lookup(sku string) (Product, bool) {
	idx := s.index
	if idx == nil {
		idx = buildIndex(s.Products)
	}

	i, ok := idx[sku]
	if !ok {
		return Product{}, false
	}

	return s.Products[i], true
}

// SKUs returns the set of non-empty SKUs present in the snapshot.
func (s Snapshot) SKUs() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Products))
	for _, p := range s.Products {
		if p.SKU == "" {
			continue
		}
		set[p.SKU] = struct{}{}
	}

	return set
}

// Latest returns one record per SKU, the most recently modified one, in
// first-seen order. Records without a SKU are dropped.
func (s Snapshot) Latest() []Product {
	idx := s.index
	if idx == nil {
		idx = buildIndex(s.Products)
	}

	out := make([]Product, 0, len(idx))
	seen := make(map[string]bool, len(idx))
	for _, p := range s.Products {
		if p.SKU == "" || seen[p.SKU] {
			continue
		}
		seen[p.SKU] = true
		out = append(out, s.Products[idx[p.SKU]])
	}

	return out
}

// buildIndex maps each SKU to the position of its most recently modified
// record. On equal timestamps the later record wins.
func buildIndex(products []Product) map[string]int {
	idx := make(map[string]int, len(products))
	for i, p := range products {
		if p.SKU == "" {
			continue
		}
		if j, ok := idx[p.SKU]; ok && products[j].DateModified.After(p.DateModified) {
			continue
		}
		idx[p.SKU] = i
	}

	return idx
}
