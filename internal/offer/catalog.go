// Package offer implements the public storefront: the product catalogue, the
// cart rules and the submission of quote requests.
package offer

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v2"
)

// GalleryItem is a reference photo customers can ask a quote for.
type GalleryItem struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	ImageURL string `yaml:"image_url" json:"image_url"`
	Category string `yaml:"category" json:"category,omitempty"`
}

// Product is a catalogue entry with its selectable options.
type Product struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	ImageURL    string   `yaml:"image_url" json:"image_url,omitempty"`
	Folder      string   `yaml:"folder" json:"folder,omitempty"`
	Colors      []string `yaml:"colors" json:"colors,omitempty"`
	Dimensions  []string `yaml:"dimensions" json:"dimensions,omitempty"`
	Thicknesses []string `yaml:"thicknesses" json:"thicknesses,omitempty"`
	Units       []string `yaml:"units" json:"units,omitempty"`
}

type Catalog struct {
	Gallery  []GalleryItem `yaml:"gallery" json:"gallery"`
	Products []Product     `yaml:"products" json:"products"`
}

func (c *Catalog) GalleryItem(id string) (GalleryItem, bool) {
	for _, g := range c.Gallery {
		if g.ID == id {
			return g, true
		}
	}
	return GalleryItem{}, false
}

func (c *Catalog) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Folders lists the distinct product folders in catalogue order.
func (c *Catalog) Folders() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range c.Products {
		if p.Folder != "" && !seen[p.Folder] {
			seen[p.Folder] = true
			out = append(out, p.Folder)
		}
	}
	return out
}

func (c *Catalog) validate() error {
	ids := map[string]bool{}
	for _, g := range c.Gallery {
		if g.ID == "" {
			return fmt.Errorf("gallery item without id")
		}
		if ids["g:"+g.ID] {
			return fmt.Errorf("duplicate gallery id %q", g.ID)
		}
		ids["g:"+g.ID] = true
	}
	for _, p := range c.Products {
		if p.ID == "" {
			return fmt.Errorf("product without id")
		}
		if ids["p:"+p.ID] {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		ids["p:"+p.ID] = true
	}
	return nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// CatalogHolder serves the current catalogue and swaps it atomically on
// reload.
type CatalogHolder struct {
	current atomic.Pointer[Catalog]
}

func NewCatalogHolder(c *Catalog) *CatalogHolder {
	h := &CatalogHolder{}
	if c == nil {
		c = &Catalog{}
	}
	h.current.Store(c)
	return h
}

func (h *CatalogHolder) Get() *Catalog {
	return h.current.Load()
}

func (h *CatalogHolder) Replace(c *Catalog) {
	h.current.Store(c)
}
