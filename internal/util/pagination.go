package util

import (
	"math"
	"strconv"
)

// Calculate converts a 1-based page number into an offset/limit pair.
// Pages too large to address are pinned so offset+limit never overflows.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	if last := math.MaxInt / size; page > last {
		page = last
	}
	return (page - 1) * size, size
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Page is one slice of an ordered listing plus the numbers a pager needs.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int64
}

func NewPage[T any](items []T, number, size int, total int64) *Page[T] {
	return &Page[T]{Items: items, Number: number, Size: size, Total: total}
}

func (p *Page[T]) Pages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	return int((p.Total-1)/int64(p.Size) + 1)
}

// OutOfRange reports a page past the last one. Page 1 is always in range.
func (p *Page[T]) OutOfRange() bool {
	return p.Number > 1 && int64(p.Number) > int64(p.Pages())
}

func (p *Page[T]) HasPrev() bool { return p.Number > 1 }
func (p *Page[T]) HasNext() bool { return p.Number < p.Pages() }
func (p *Page[T]) PrevNum() int  { return p.Number - 1 }
func (p *Page[T]) NextNum() int  { return p.Number + 1 }

// Numbers lists every page number, for rendering a pager.
func (p *Page[T]) Numbers() []int {
	n := p.Pages()
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
