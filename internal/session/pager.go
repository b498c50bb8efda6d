package session

// PageSize is the fixed number of rows per page in every list view.
const PageSize = 5

// Pager is a 1-indexed page cursor over a list whose length is only known
// at render time. The cursor clamps to [1, PageCount(n)] on every access,
// so a shrinking list can never leave it out of range.
type Pager struct {
	page int
}

// Reset returns the cursor to page one.
func (p *Pager) Reset() {
	p.page = 1
}

// Page returns the current page, clamped against a list of n items.
func (p *Pager) Page(n int) int {
	if p.page < 1 {
		p.page = 1
	}
	if last := PageCount(n); p.page > last {
		p.page = last
	}
	return p.page
}

// Next advances one page, clamped.
func (p *Pager) Next(n int) {
	p.page = p.Page(n) + 1
	p.page = p.Page(n)
}

// Prev steps back one page, clamped.
func (p *Pager) Prev(n int) {
	p.page = p.Page(n) - 1
	p.page = p.Page(n)
}

// Bounds returns the half-open slice range [lo, hi) of the current page.
func (p *Pager) Bounds(n int) (int, int) {
	page := p.Page(n)
	lo := (page - 1) * PageSize
	if lo > n {
		lo = n
	}
	hi := lo + PageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}

// PageCount returns the number of pages for n items. An empty list still
// has one (empty) page.
func PageCount(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// PageOf slices one page out of items using the pager's current position.
func PageOf[T any](p *Pager, items []T) []T {
	lo, hi := p.Bounds(len(items))
	return items[lo:hi]
}
