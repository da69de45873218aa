package offer

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
)

const (
	RequestsCollection = "offerRequests"
	StatusNew          = "new"

	uploadConcurrency = 4
)

// Request is the flattened, persisted form of a submitted cart.
type Request struct {
	ID        string
	ProjectID string
	Contact   Contact
	Items     []CartItem
	Status    string
	CreatedAt time.Time
}

type Submitter struct {
	cart     *Cart
	repo     store.Repository
	media    media.Store
	notifier notify.Notifier
	now      func() time.Time
}

func NewSubmitter(cart *Cart, repo store.Repository, mediaStore media.Store, notifier notify.Notifier) *Submitter {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Submitter{
		cart:     cart,
		repo:     repo,
		media:    mediaStore,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit validates the cart, uploads the item photos, stores the request
// and notifies the office. Nothing is stored when a photo upload fails, and
// photos already uploaded for a failed submission are deleted again.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Request, error) {
	if err := s.cart.Validate(&sub); err != nil {
		return nil, err
	}

	req := &Request{
		ID:        uuid.NewString(),
		ProjectID: sub.ProjectID,
		Contact:   sub.Contact,
		Items:     sub.Items,
		Status:    StatusNew,
		CreatedAt: s.now().UTC(),
	}

	assets, err := s.uploadPhotos(ctx, req)
	if err != nil {
		s.discardPhotos(ctx, req.ID, assets)
		return nil, err
	}

	if err := s.repo.Set(ctx, RequestsCollection, requestDocument(req)); err != nil {
		s.discardPhotos(ctx, req.ID, assets)
		return nil, fmt.Errorf("failed to save offer request: %w", err)
	}

	logger.Log.Info("offer request submitted",
		"component", "offer",
		"offer_id", req.ID,
		"items", len(req.Items))

	s.notifier.Notify(notify.Event{
		Type:      notify.EventOfferSubmitted,
		ProjectID: req.ProjectID,
		OfferID:   req.ID,
	})
	return req, nil
}

// uploadPhotos returns every asset it uploaded, including those of a
// submission that failed part way.
func (s *Submitter) uploadPhotos(ctx context.Context, req *Request) ([]media.Asset, error) {
	var (
		mu     sync.Mutex
		assets []media.Asset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i := range req.Items {
		item := &req.Items[i]
		item.PhotoURLs = make([]string, len(item.Photos))
		for j, photo := range item.Photos {
			g.Go(func() error {
				asset, err := s.media.Upload(gctx, media.UploadInput{
					Filename:    photo.Filename,
					ContentType: photo.ContentType,
					Data:        photo.Data,
					Folder:      path.Join("offers", req.ID, fmt.Sprintf("item-%d", i+1)),
				})
				if err != nil {
					return fmt.Errorf("failed to upload photo %s: %w", photo.Filename, err)
				}
				mu.Lock()
				assets = append(assets, asset)
				mu.Unlock()
				item.PhotoURLs[j] = asset.URL
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return assets, err
	}

	for i := range req.Items {
		req.Items[i].Photos = nil
	}
	return assets, nil
}

// discardPhotos deletes the photos of a submission that was not stored.
// Deletion is best effort.
func (s *Submitter) discardPhotos(ctx context.Context, offerID string, assets []media.Asset) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range assets {
		if err := s.media.Delete(ctx, a.PublicID, a.URL); err != nil {
			logger.Log.Warn("failed to delete photo of rejected offer",
				"component", "offer",
				"offer_id", offerID,
				"public_id", a.PublicID,
				"error", err)
		}
	}
}

func requestDocument(req *Request) store.Document {
	items := make([]any, len(req.Items))
	for i, it := range req.Items {
		items[i] = map[string]any{
			"kind":      string(it.Kind),
			"itemId":    it.ItemID,
			"color":     it.Color,
			"dimension": it.Dimension,
			"thickness": it.Thickness,
			"quantity":  it.Quantity,
			"unit":      it.Unit,
			"note":      it.Note,
			"photoUrls": it.PhotoURLs,
		}
	}
	return store.Document{
		ID: req.ID,
		Fields: map[string]any{
			"projectId": req.ProjectID,
			"contact": map[string]any{
				"name":    req.Contact.Name,
				"email":   req.Contact.Email,
				"phone":   req.Contact.Phone,
				"address": req.Contact.Address,
				"message": req.Contact.Message,
			},
			"items":     items,
			"status":    req.Status,
			"createdAt": req.CreatedAt.UnixMilli(),
		},
	}
}
