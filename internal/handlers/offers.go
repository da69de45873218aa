package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/offer"
)

const photosFieldPrefix = "photos_"

type OffersHandler struct {
	catalog   *offer.CatalogHolder
	cart      *offer.Cart
	submitter *offer.Submitter
}

func NewOffersHandler(catalog *offer.CatalogHolder, cart *offer.Cart, submitter *offer.Submitter) *OffersHandler {
	return &OffersHandler{catalog: catalog, cart: cart, submitter: submitter}
}

type cartOptions struct {
	Dimensions    bool `json:"dimensions"`
	Thickness     bool `json:"thickness"`
	ProjectPhotos bool `json:"project_photos"`
	FolderCatalog bool `json:"folder_catalog"`
	MaxPhotos     int  `json:"max_photos"`
}

type catalogResponse struct {
	Gallery  []offer.GalleryItem `json:"gallery"`
	Products []offer.Product     `json:"products"`
	Folders  []string            `json:"folders,omitempty"`
	Options  cartOptions         `json:"options"`
}

// GetCatalog godoc
// @Summary     Offer catalogue
// @Description Returns the gallery, the product catalogue and the cart options of the storefront
// @Tags        offers
// @Produce     json
// @Success     200 {object} handlers.catalogResponse
// @Router      /catalog [get]
func (h *OffersHandler) GetCatalog(c *gin.Context) {
	cat := h.catalog.Get()
	opts := h.cart.Options()

	resp := catalogResponse{
		Gallery:  cat.Gallery,
		Products: cat.Products,
		Options: cartOptions{
			Dimensions:    opts.Dimensions,
			Thickness:     opts.Thickness,
			ProjectPhotos: opts.ProjectPhotos,
			FolderCatalog: opts.FolderCatalog,
			MaxPhotos:     opts.MaxPhotos,
		},
	}
	if opts.FolderCatalog {
		resp.Folders = cat.Folders()
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitOffer godoc
// @Summary     Request an offer
// @Description Submits a cart for a quote. Send JSON, or multipart with the cart as "payload" and item photos as "photos_<item index>".
// @Tags        offers
// @Accept      json,multipart/form-data
// @Produce     json
// @Param       request body     offer.Submission true  "Cart"
// @Param       payload formData string           false "Cart as JSON (multipart only)"
// @Success     201 {object} models.OfferResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /offers [post]
func (h *OffersHandler) SubmitOffer(c *gin.Context) {
	var (
		sub offer.Submission
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		sub, err = multipartSubmission(c)
	} else {
		err = c.ShouldBindJSON(&sub)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	req, err := h.submitter.Submit(c.Request.Context(), sub)
	if err != nil {
		respondError(c, err, "failed to submit offer request")
		return
	}
	c.JSON(http.StatusCreated, models.OfferResponse{ID: req.ID, Status: req.Status})
}

func multipartSubmission(c *gin.Context) (offer.Submission, error) {
	var sub offer.Submission
	form, err := c.MultipartForm()
	if err != nil {
		return sub, fmt.Errorf("invalid multipart form: %w", err)
	}

	payload := form.Value["payload"]
	if len(payload) == 0 {
		return sub, fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal([]byte(payload[0]), &sub); err != nil {
		return sub, fmt.Errorf("invalid payload: %w", err)
	}

	for i := range sub.Items {
		for _, fh := range form.File[fmt.Sprintf("%s%d", photosFieldPrefix, i)] {
			f, err := readUpload(fh)
			if err != nil {
				return sub, err
			}
			sub.Items[i].Photos = append(sub.Items[i].Photos, offer.Photo{
				Filename:    f.Filename,
				ContentType: f.ContentType,
				Data:        f.Data,
			})
		}
	}
	return sub, nil
}
