package combine

import (
	"zastat/internal/category"
)

// BookKey identifies the channels available for one mass point directory,
// category label, production, b-tag regime, region and flavour key.
type BookKey struct {
	Dir        string
	Label      string
	Production category.Production
	BTag       category.BTag
	Region     category.Region
	Flavors    category.FlavorKey
}

// Book records which channel lists exist. Every planner transition checks
// its inputs with a single Has lookup per key.
type Book struct {
	entries map[BookKey][]Channel
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{entries: make(map[BookKey][]Channel)}
}

// Add appends channels under key.
func (b *Book) Add(key BookKey, channels ...Channel) {
	b.entries[key] = append(b.entries[key], channels...)
}

// Has reports whether key holds at least one channel.
func (b *Book) Has(key BookKey) bool {
	return len(b.entries[key]) > 0
}

// Get returns a copy of the channels under key.
func (b *Book) Get(key BookKey) []Channel {
	return append([]Channel(nil), b.entries[key]...)
}

// Len returns the number of keys.
func (b *Book) Len() int {
	return len(b.entries)
}
