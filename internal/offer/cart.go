package offer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidCart = errors.New("invalid cart")

type ItemKind string

const (
	KindGallery ItemKind = "gallery"
	KindCatalog ItemKind = "catalog"
)

// Options selects which optional cart fields the storefront offers.
type Options struct {
	Dimensions    bool
	Thickness     bool
	ProjectPhotos bool
	FolderCatalog bool
	MaxPhotos     int
}

// DefaultOptions is the storefront configuration: every optional field on,
// at most five photos per item.
func DefaultOptions() Options {
	return Options{
		Dimensions:    true,
		Thickness:     true,
		ProjectPhotos: true,
		FolderCatalog: true,
		MaxPhotos:     5,
	}
}

type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CartItem struct {
	Kind      ItemKind `json:"kind" validate:"required,oneof=gallery catalog"`
	ItemID    string   `json:"item_id" validate:"required,max=100"`
	Color     string   `json:"color,omitempty" validate:"max=100"`
	Dimension string   `json:"dimension,omitempty" validate:"max=100"`
	Thickness string   `json:"thickness,omitempty" validate:"max=100"`
	Quantity  int      `json:"quantity" validate:"required,gte=1,lte=10000"`
	Unit      string   `json:"unit,omitempty" validate:"max=20"`
	Note      string   `json:"note,omitempty" validate:"max=2000"`
	Photos    []Photo  `json:"-"`
	PhotoURLs []string `json:"photo_urls,omitempty"`
}

type Contact struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	Message string `json:"message,omitempty" validate:"max=5000"`
}

type Submission struct {
	Contact   Contact    `json:"contact" validate:"required"`
	ProjectID string     `json:"project_id,omitempty" validate:"max=100"`
	Items     []CartItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// Cart checks submissions against the catalogue and the storefront options.
type Cart struct {
	opts     Options
	catalog  *CatalogHolder
	validate *validator.Validate
}

func NewCart(opts Options, catalog *CatalogHolder) *Cart {
	return &Cart{
		opts:     opts,
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *Cart) Options() Options {
	return c.opts
}

// Validate returns an error wrapping ErrInvalidCart describing the first
// problem found.
func (c *Cart) Validate(sub *Submission) error {
	if err := c.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidCart, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}

	catalog := c.catalog.Get()
	for i := range sub.Items {
		if err := c.checkItem(catalog, &sub.Items[i]); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidCart, i+1, err)
		}
	}
	return nil
}

func (c *Cart) checkItem(catalog *Catalog, item *CartItem) error {
	if !c.opts.Dimensions && item.Dimension != "" {
		return fmt.Errorf("dimensions are not offered")
	}
	if !c.opts.Thickness && item.Thickness != "" {
		return fmt.Errorf("thickness is not offered")
	}
	if !c.opts.ProjectPhotos && len(item.Photos) > 0 {
		return fmt.Errorf("photos are not accepted")
	}
	if len(item.Photos) > c.opts.MaxPhotos {
		return fmt.Errorf("at most %d photos per item", c.opts.MaxPhotos)
	}

	switch item.Kind {
	case KindGallery:
		if _, ok := catalog.GalleryItem(item.ItemID); !ok {
			return fmt.Errorf("unknown gallery item %q", item.ItemID)
		}
	case KindCatalog:
		p, ok := catalog.Product(item.ItemID)
		if !ok {
			return fmt.Errorf("unknown product %q", item.ItemID)
		}
		if !allowed(p.Colors, item.Color) {
			return fmt.Errorf("color %q is not available", item.Color)
		}
		if !allowed(p.Dimensions, item.Dimension) {
			return fmt.Errorf("dimension %q is not available", item.Dimension)
		}
		if !allowed(p.Thicknesses, item.Thickness) {
			return fmt.Errorf("thickness %q is not available", item.Thickness)
		}
		if !allowed(p.Units, item.Unit) {
			return fmt.Errorf("unit %q is not available", item.Unit)
		}
	}
	return nil
}

// allowed accepts an empty choice, and any choice when the product lists no
// options.
func allowed(options []string, choice string) bool {
	return choice == "" || len(options) == 0 || slices.Contains(options, choice)
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Submission.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
