package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "empty list still has one page", n: 0, want: 1},
		{name: "single item", n: 1, want: 1},
		{name: "exactly one page", n: 5, want: 1},
		{name: "one over", n: 6, want: 2},
		{name: "twelve items make three pages", n: 12, want: 3},
		{name: "negative clamps to one", n: -3, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageCount(tt.n))
		})
	}
}

func TestPager_Navigation(t *testing.T) {
	var p Pager
	p.Reset()

	const n = 12 // three pages

	assert.Equal(t, 1, p.Page(n))

	p.Next(n)
	assert.Equal(t, 2, p.Page(n))

	p.Next(n)
	p.Next(n)
	assert.Equal(t, 3, p.Page(n), "next clamps at the last page")

	p.Prev(n)
	assert.Equal(t, 2, p.Page(n))

	p.Prev(n)
	p.Prev(n)
	assert.Equal(t, 1, p.Page(n), "prev clamps at page one")
}

func TestPager_ClampsWhenListShrinks(t *testing.T) {
	var p Pager
	p.Reset()
	p.Next(12)
	p.Next(12)
	assert.Equal(t, 3, p.Page(12))

	// The list shrank under the cursor.
	assert.Equal(t, 1, p.Page(4))
}

func TestPager_Bounds(t *testing.T) {
	var p Pager
	p.Reset()

	lo, hi := p.Bounds(12)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 5, hi)

	p.Next(12)
	lo, hi = p.Bounds(12)
	assert.Equal(t, 5, lo)
	assert.Equal(t, 10, hi)

	p.Next(12)
	lo, hi = p.Bounds(12)
	assert.Equal(t, 10, lo)
	assert.Equal(t, 12, hi)
}

func TestPageOf_EmptyList(t *testing.T) {
	var p Pager
	p.Reset()
	assert.Empty(t, PageOf(&p, []string{}), "page 1 of an empty list is an empty slice")
}

func TestPageOf_Slices(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	var p Pager
	p.Reset()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, PageOf(&p, items))
	p.Next(len(items))
	assert.Equal(t, []int{6, 7}, PageOf(&p, items))
}
