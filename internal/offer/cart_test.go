package offer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSubmission() Submission {
	return Submission{
		Contact: Contact{Name: "Ana Kovač", Email: "ana@example.com"},
		Items: []CartItem{
			{Kind: KindCatalog, ItemID: "tile", Color: "red", Quantity: 40, Unit: "m2"},
			{Kind: KindGallery, ItemID: "g1", Quantity: 1, Photos: []Photo{{Filename: "roof.jpg"}}},
		},
	}
}

func TestCart_Validate(t *testing.T) {
	photos := func(n int) []Photo {
		out := make([]Photo, n)
		for i := range out {
			out[i] = Photo{Filename: "p.jpg"}
		}
		return out
	}

	tests := []struct {
		name    string
		opts    Options
		mutate  func(*Submission)
		wantErr string
	}{
		{name: "valid", opts: DefaultOptions(), mutate: func(*Submission) {}},
		{
			name:    "quantity is required",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[0].Quantity = 0 },
			wantErr: "Items[0].Quantity is required",
		},
		{
			name:    "no items",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items = nil },
			wantErr: "Items is required",
		},
		{
			name:    "bad email",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Contact.Email = "nope" },
			wantErr: "valid email",
		},
		{
			name:    "unknown kind",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[0].Kind = "bundle" },
			wantErr: "must be one of",
		},
		{
			name:    "too many photos",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[1].Photos = photos(6) },
			wantErr: "at most 5 photos",
		},
		{
			name:   "five photos",
			opts:   DefaultOptions(),
			mutate: func(s *Submission) { s.Items[1].Photos = photos(5) },
		},
		{
			name:    "photos disabled",
			opts:    Options{MaxPhotos: 5},
			mutate:  func(*Submission) {},
			wantErr: "photos are not accepted",
		},
		{
			name:    "unknown product",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[0].ItemID = "marble" },
			wantErr: `unknown product "marble"`,
		},
		{
			name:    "unavailable color",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[0].Color = "green" },
			wantErr: `color "green"`,
		},
		{
			name:   "product without color options accepts any color",
			opts:   DefaultOptions(),
			mutate: func(s *Submission) { s.Items[0].ItemID, s.Items[0].Unit = "gutter", "" },
		},
		{
			name: "dimensions disabled",
			opts: Options{ProjectPhotos: true, Thickness: true, MaxPhotos: 5},
			mutate: func(s *Submission) {
				s.Items[0] = CartItem{Kind: KindCatalog, ItemID: "board", Dimension: "20x140", Quantity: 3}
			},
			wantErr: "dimensions are not offered",
		},
		{
			name:    "unknown gallery item",
			opts:    DefaultOptions(),
			mutate:  func(s *Submission) { s.Items[1].ItemID = "g9" },
			wantErr: "item 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCart(tt.opts, NewCatalogHolder(testCatalog(t)))
			sub := validSubmission()
			tt.mutate(&sub)

			err := cart.Validate(&sub)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidCart))
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
