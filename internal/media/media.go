// Package media talks to the external media host that stores uploaded files
// and owns the URL contract used to download them.
package media

import (
	"context"
	"net/url"
	"strings"
)

const (
	imageDelivery  = "/image/upload/"
	rawDelivery    = "/raw/upload/"
	attachmentFlag = "fl_attachment"
)

type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	// Folder is the destination folder on the media host. Ignored when
	// PublicID is set.
	Folder   string
	PublicID string
}

type Asset struct {
	PublicID     string
	URL          string
	ResourceType string
}

type Store interface {
	Upload(ctx context.Context, in UploadInput) (Asset, error)
	// Delete removes an asset; assetURL is used to infer how it was stored.
	Delete(ctx context.Context, publicID, assetURL string) error
}

// DownloadURL returns the URL that makes the media host serve the file as
// an attachment. PDFs stored under the image delivery path must be fetched
// through the raw delivery path to download intact.
func DownloadURL(assetURL string, isPDF bool) string {
	if assetURL == "" {
		return ""
	}
	if isPDF {
		assetURL = strings.Replace(assetURL, imageDelivery, rawDelivery, 1)
	}
	if hasAttachmentFlag(assetURL) {
		return assetURL
	}
	if strings.Contains(assetURL, "?") {
		return assetURL + "&" + attachmentFlag
	}
	return assetURL + "?" + attachmentFlag
}

func hasAttachmentFlag(assetURL string) bool {
	u, err := url.Parse(assetURL)
	if err != nil {
		return strings.Contains(assetURL, attachmentFlag)
	}
	_, ok := u.Query()[attachmentFlag]
	return ok
}

// ResourceTypeOf infers the media host resource type from a delivery URL.
func ResourceTypeOf(assetURL string) string {
	switch {
	case strings.Contains(assetURL, rawDelivery):
		return "raw"
	case strings.Contains(assetURL, "/video/upload/"):
		return "video"
	default:
		return "image"
	}
}
