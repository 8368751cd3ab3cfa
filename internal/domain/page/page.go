package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Page is one fixed house on the board. Color and Icon are carried through for renderers.
type Page struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

var ErrInvalidCatalog = errors.New("invalid page catalog")

// Catalog is the ordered page configuration. Pages are never added or removed at runtime.
type Catalog struct {
	pages []Page
}

func NewCatalog(pages []Page) (Catalog, error) {
	if len(pages) == 0 {
		return Catalog{}, fmt.Errorf("%w: no pages", ErrInvalidCatalog)
	}

	out := make([]Page, len(pages))

	for i, p := range pages {
		if p.Index != i {
			return Catalog{}, fmt.Errorf("%w: page %q has index %d, want %d", ErrInvalidCatalog, p.Title, p.Index, i)
		}
		if p.Title == "" {
			return Catalog{}, fmt.Errorf("%w: page %d has no title", ErrInvalidCatalog, i)
		}
		out[i] = p
	}

	return Catalog{pages: out}, nil
}

func DefaultCatalog() Catalog {
	return Catalog{pages: []Page{
		{Index: 0, Title: "Canonicus", Description: "Foundation Principles", Category: "Foundation", Color: "#F54949", Icon: "school"},
		{Index: 1, Title: "Amicus", Description: "Community Building", Category: "Community", Color: "#FFC830", Icon: "group"},
		{Index: 2, Title: "Capellanius", Description: "Spiritual Wisdom", Category: "Wisdom", Color: "#8BC34A", Icon: "auto_awesome"},
		{Index: 3, Title: "Theoricus", Description: "Deep Knowledge", Category: "Theory", Color: "#46CDFC", Icon: "psychology"},
		{Index: 4, Title: "Educator", Description: "Teaching & Guidance", Category: "Teaching", Color: "#824FF8", Icon: "lightbulb"},
		{Index: 5, Title: "Seminarium", Description: "Advanced Study", Category: "Advanced", Color: "#484848", Icon: "menu_book"},
	}}
}

// LoadCatalog reads a JSON array of pages. An empty path yields the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read page catalog: %w", err)
	}

	var pages []Page
	if err := json.Unmarshal(b, &pages); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	return NewCatalog(pages)
}

func (c Catalog) Len() int {
	return len(c.pages)
}

func (c Catalog) Contains(index int) bool {
	return index >= 0 && index < len(c.pages)
}

func (c Catalog) Get(index int) (Page, bool) {
	if !c.Contains(index) {
		return Page{}, false
	}
	return c.pages[index], true
}

func (c Catalog) Pages() []Page {
	out := make([]Page, len(c.pages))
	copy(out, c.pages)
	return out
}

func (c Catalog) Indices() []int {
	out := make([]int, len(c.pages))
	for i := range c.pages {
		out[i] = c.pages[i].Index
	}
	return out
}
