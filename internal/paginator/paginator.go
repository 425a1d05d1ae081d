// Package paginator slices ordered gorm queries into fixed-size pages.
//
// A requested page that is missing or not a number resolves to the first
// page; a number outside the valid range resolves to the last page. An empty
// collection still has one (empty) page.
package paginator

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// PostsPerPage is the page size of every feed.
const PostsPerPage = 10

// Page is one slice of an ordered collection.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"number"`
	NumPages int   `json:"num_pages"`
	Count    int64 `json:"count"`
	PerPage  int   `json:"per_page"`
}

func (p *Page[T]) Len() int { return len(p.Items) }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) NextPageNumber() int { return p.Number + 1 }

func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }

// PageRange lists every page number, for rendering the page links.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

// NumPagesFor returns how many pages count items occupy.
func NumPagesFor(count int64, perPage int) int {
	if count <= 0 {
		return 1
	}
	n := count / int64(perPage)
	if count%int64(perPage) != 0 {
		n++
	}
	return int(n)
}

// Resolve turns the raw ?page= value into a valid page number.
func Resolve(raw string, count int64, perPage int) (number, numPages int) {
	numPages = NumPagesFor(count, perPage)
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 1, numPages
	case n < 1 || n > numPages:
		return numPages, numPages
	}
	return n, numPages
}

// Paginate counts base, resolves raw and loads the items of that page.
// Scopes (preloads, ordering) are applied to the item query only.
func Paginate[T any](base *gorm.DB, raw string, perPage int, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	if perPage < 1 {
		return nil, fmt.Errorf("paginator: invalid page size %d", perPage)
	}

	var count int64
	if err := base.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("paginator: count: %w", err)
	}

	number, numPages := Resolve(raw, count, perPage)
	page := &Page[T]{
		Items:    make([]T, 0, perPage),
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
	if count == 0 {
		return page, nil
	}

	err := base.Session(&gorm.Session{}).
		Scopes(scopes...).
		Offset((number - 1) * perPage).
		Limit(perPage).
		Find(&page.Items).Error
	if err != nil {
		return nil, fmt.Errorf("paginator: load page %d: %w", number, err)
	}
	return page, nil
}
