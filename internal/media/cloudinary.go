package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultCloudinaryAPI = "https://api.cloudinary.com/v1_1"

type CloudinaryClient struct {
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	now        func() time.Time
}

type cloudinaryUploadResponse struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type cloudinaryDestroyResponse struct {
	Result string `json:"result"`
}

func NewCloudinaryClient(cloudName, apiKey, apiSecret string) *CloudinaryClient {
	return &CloudinaryClient{
		baseURL:   defaultCloudinaryAPI,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		now: time.Now,
	}
}

// WithBaseURL points the client at another API root, used by tests.
func (c *CloudinaryClient) WithBaseURL(baseURL string) *CloudinaryClient {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

func (c *CloudinaryClient) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if in.PublicID != "" {
		params["public_id"] = in.PublicID
	} else if in.Folder != "" {
		params["folder"] = in.Folder
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.apiKey

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return Asset{}, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile("file", in.Filename)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return Asset{}, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Asset{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/auto/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, status, err := c.do(req)
	if err != nil {
		return Asset{}, err
	}

	var result cloudinaryUploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Asset{}, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if status != http.StatusOK {
		msg := string(respBody)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return Asset{}, fmt.Errorf("failed to upload file: status %d: %s", status, msg)
	}
	if result.PublicID == "" || result.SecureURL == "" {
		return Asset{}, fmt.Errorf("upload response is missing public_id or secure_url, body: %s", string(respBody))
	}

	return Asset{
		PublicID:     result.PublicID,
		URL:          result.SecureURL,
		ResourceType: result.ResourceType,
	}, nil
}

func (c *CloudinaryClient) Delete(ctx context.Context, publicID, assetURL string) error {
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.apiKey

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/destroy", c.baseURL, c.cloudName, ResourceTypeOf(assetURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	respBody, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to delete asset: status %d, body: %s", status, string(respBody))
	}

	var result cloudinaryDestroyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	// "not found" means it is already gone
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete asset: result %q", result.Result)
	}
	return nil
}

func (c *CloudinaryClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// sign computes the request signature: the sorted key=value pairs joined
// with & followed by the API secret, hashed with SHA-1.
func (c *CloudinaryClient) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
