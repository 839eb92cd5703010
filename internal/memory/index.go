package memory

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDimensionMismatch = errors.New("memory: vector dimension mismatch")

// Neighbor is a search hit: the position of the vector in the index and its
// squared Euclidean distance to the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// FlatIndex is an exact, append-only nearest-neighbour index. Positions never change.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (ix *FlatIndex) Dim() int { return ix.dim }
func (ix *FlatIndex) Len() int { return len(ix.vectors) }

// Add appends vectors. Either all of them are added or none are.
func (ix *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector %d has %d dims, index has %d", ErrDimensionMismatch, i, len(v), ix.dim)
		}
	}
	for _, v := range vectors {
		cp := make([]float32, len(v))
		copy(cp, v)
		ix.vectors = append(ix.vectors, cp)
	}
	return nil
}

// Search returns the k nearest vectors by increasing distance; ties keep insertion order.
func (ix *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	all := make([]Neighbor, len(ix.vectors))
	for i, v := range ix.vectors {
		all[i] = Neighbor{Index: i, Distance: squaredL2(query, v)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })

	return all[:k], nil
}
