package engine

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fraeswerk/nestkit/internal/model"
)

// PackFunc is any rectangular packing entry point.
type PackFunc func(parts []model.Part, sheets []model.SheetSpec) (model.PackResult, error)

// LayoutCache memoizes pack results for identical inputs behind an explicit
// cache object wrapping the core call. Hits return deep copies, so callers
// can mutate results without corrupting the cache. Errors are never cached.
type LayoutCache struct {
	fn     PackFunc
	cache  *lru.Cache[uint64, model.PackResult]
	hits   int
	misses int
}

func NewLayoutCache(size int, fn PackFunc) (*LayoutCache, error) {
	c, err := lru.New[uint64, model.PackResult](size)
	if err != nil {
		return nil, err
	}
	return &LayoutCache{fn: fn, cache: c}, nil
}

// Pack returns the cached layout for these exact inputs or computes and
// stores one.
func (lc *LayoutCache) Pack(parts []model.Part, sheets []model.SheetSpec) (model.PackResult, error) {
	key := hashPackInputs(parts, sheets)
	if cached, ok := lc.cache.Get(key); ok {
		lc.hits++
		return cloneResult(cached), nil
	}

	result, err := lc.fn(parts, sheets)
	if err != nil {
		return model.PackResult{}, err
	}
	lc.misses++
	lc.cache.Add(key, cloneResult(result))
	return result, nil
}

// Stats returns hit and miss counters.
func (lc *LayoutCache) Stats() (hits, misses int) {
	return lc.hits, lc.misses
}

func hashPackInputs(parts []model.Part, sheets []model.SheetSpec) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)

	writeF := func(v float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	// Length-prefixed, so adjacent variable-length fields cannot run
	// together and collide.
	writeS := func(s string) {
		binary.LittleEndian.PutUint64(buf, uint64(len(s)))
		h.Write(buf)
		h.Write([]byte(s))
	}

	for _, p := range parts {
		writeS(p.ID)
		writeS(p.Label)
		writeF(p.Width)
		writeF(p.Height)
		writeF(float64(p.Quantity))
		if p.CanRotate {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	h.Write([]byte{0xff})
	for _, s := range sheets {
		writeF(s.Width)
		writeF(s.Height)
		writeF(s.Margin)
	}
	return h.Sum64()
}

func cloneResult(r model.PackResult) model.PackResult {
	return model.PackResult{
		Placed:     append([]model.PlacedPart(nil), r.Placed...),
		SheetCount: r.SheetCount,
		Warnings:   append([]string(nil), r.Warnings...),
	}
}
