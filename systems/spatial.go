// Package systems provides the geometry, spatial index and steering math the
// simulation engine is built on.
package systems

import (
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
)

// ChunkGrid partitions a square world into fixed-size chunks for local
// neighbor queries. Every tracked entity lives in exactly one bucket.
type ChunkGrid struct {
	size      float64
	chunkSize float64
	chunks    int // per side
	cells     [][]ecs.Entity
	where     map[ecs.Entity]int // entity -> flat cell index
}

// NewChunkGrid creates a grid over [0, size]². chunkSize must be positive and
// divide size evenly.
func NewChunkGrid(size, chunkSize float64) (*ChunkGrid, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("world size %v must be positive and finite", size)
	}
	if chunkSize <= 0 || math.IsNaN(chunkSize) {
		return nil, fmt.Errorf("chunk size %v must be positive", chunkSize)
	}
	ratio := size / chunkSize
	n := math.Round(ratio)
	if n < 1 || math.Abs(ratio-n) > 1e-9*n {
		return nil, fmt.Errorf("chunk size %v does not divide world size %v", chunkSize, size)
	}

	chunks := int(n)
	cells := make([][]ecs.Entity, chunks*chunks)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}
	return &ChunkGrid{
		size:      size,
		chunkSize: chunkSize,
		chunks:    chunks,
		cells:     cells,
		where:     make(map[ecs.Entity]int),
	}, nil
}

// Size returns the world side length.
func (g *ChunkGrid) Size() float64 { return g.size }

// Chunks returns the number of chunks per side.
func (g *ChunkGrid) Chunks() int { return g.chunks }

// Len returns the number of tracked entities.
func (g *ChunkGrid) Len() int { return len(g.where) }

// ChunkIndex maps a location, clamped to the world, to chunk coordinates.
func (g *ChunkGrid) ChunkIndex(x, y float64) (cx, cy int) {
	return g.axis(x), g.axis(y)
}

func (g *ChunkGrid) axis(v float64) int {
	c := int(Clamp(v, 0, g.size) / g.chunkSize)
	if c >= g.chunks {
		c = g.chunks - 1
	}
	return c
}

func (g *ChunkGrid) flat(x, y float64) int {
	cx, cy := g.ChunkIndex(x, y)
	return cy*g.chunks + cx
}

// Insert starts tracking e at the given location. Inserting a tracked entity
// relocates it instead.
func (g *ChunkGrid) Insert(e ecs.Entity, x, y float64) {
	if _, ok := g.where[e]; ok {
		g.Relocate(e, x, y)
		return
	}
	idx := g.flat(x, y)
	g.cells[idx] = append(g.cells[idx], e)
	g.where[e] = idx
}

// Remove stops tracking e. It reports whether e was tracked.
func (g *ChunkGrid) Remove(e ecs.Entity) bool {
	idx, ok := g.where[e]
	if !ok {
		return false
	}
	g.detach(idx, e)
	delete(g.where, e)
	return true
}

// Relocate moves e to the bucket for its new location in one step. Untracked
// entities are inserted.
func (g *ChunkGrid) Relocate(e ecs.Entity, x, y float64) {
	idx := g.flat(x, y)
	old, ok := g.where[e]
	if ok && old == idx {
		return
	}
	if ok {
		g.detach(old, e)
	}
	g.cells[idx] = append(g.cells[idx], e)
	g.where[e] = idx
}

func (g *ChunkGrid) detach(idx int, e ecs.Entity) {
	bucket := g.cells[idx]
	for i, other := range bucket {
		if other == e {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			g.cells[idx] = bucket[:last]
			return
		}
	}
}

// SearchRadius appends every entity in chunks overlapping the bounding box
// of the circle to dst. The result is a superset of the entities within
// radius; callers filter by exact distance.
func (g *ChunkGrid) SearchRadius(dst []ecs.Entity, x, y, radius float64) []ecs.Entity {
	if radius < 0 || math.IsNaN(radius) {
		return dst
	}
	minX, minY := g.ChunkIndex(x-radius, y-radius)
	maxX, maxY := g.ChunkIndex(x+radius, y+radius)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			dst = append(dst, g.cells[cy*g.chunks+cx]...)
		}
	}
	return dst
}

// Locate returns the chunk an entity is filed under.
func (g *ChunkGrid) Locate(e ecs.Entity) (cx, cy int, ok bool) {
	idx, ok := g.where[e]
	if !ok {
		return 0, 0, false
	}
	return idx % g.chunks, idx / g.chunks, true
}

// Verify checks that e is filed in exactly one bucket, the one matching (x, y).
func (g *ChunkGrid) Verify(e ecs.Entity, x, y float64) error {
	idx, ok := g.where[e]
	if !ok {
		return fmt.Errorf("entity %v is not tracked", e)
	}
	if want := g.flat(x, y); idx != want {
		return fmt.Errorf("entity %v filed in chunk %d, location (%.3f, %.3f) maps to %d", e, idx, x, y, want)
	}
	seen := 0
	for _, bucket := range g.cells {
		for _, other := range bucket {
			if other == e {
				seen++
			}
		}
	}
	if seen != 1 {
		return fmt.Errorf("entity %v appears in %d buckets", e, seen)
	}
	return nil
}

// Audit checks the whole index in one pass: every entity appears once, in the
// bucket matching the location reported by locate.
func (g *ChunkGrid) Audit(locate func(ecs.Entity) (x, y float64)) error {
	seen := 0
	for idx, bucket := range g.cells {
		for _, e := range bucket {
			seen++
			if g.where[e] != idx {
				return fmt.Errorf("entity %v found in chunk %d but indexed under %d", e, idx, g.where[e])
			}
			x, y := locate(e)
			if want := g.flat(x, y); want != idx {
				return fmt.Errorf("entity %v filed in chunk %d, location (%.3f, %.3f) maps to %d", e, idx, x, y, want)
			}
		}
	}
	if seen != len(g.where) {
		return fmt.Errorf("%d bucket entries for %d tracked entities", seen, len(g.where))
	}
	return nil
}
