// Package apiclient wraps the platform's attachment services: list,
// metadata, signed URLs and deletion. All failures surface as
// *APIError with field-level details when the service provides them.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/attachkit/internal/attachment"
)

type Client struct {
	baseURL string
	hc      *http.Client
	apiKey  string
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// recordJSON is the wire shape the attachment services use.
type recordJSON struct {
	ID           string     `json:"id"`
	TargetID     string     `json:"targetId"`
	OriginalName string     `json:"originalName"`
	FileType     string     `json:"fileType"`
	SizeInBytes  int64      `json:"sizeInBytes"`
	IsGlobal     bool       `json:"isGlobal"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	CreatedAt    time.Time  `json:"createdAt"`
	SignedURL    string     `json:"signedUrl"`
	OwnerID      string     `json:"ownerId"`
}

func (r recordJSON) toRecord() attachment.Record {
	return attachment.Record{
		ID:             r.ID,
		OriginalName:   r.OriginalName,
		FileType:       r.FileType,
		SizeBytes:      r.SizeInBytes,
		IsGlobal:       r.IsGlobal,
		ExpirationDate: r.ExpiryDate,
		CreatedAt:      r.CreatedAt,
		SignedURL:      r.SignedURL,
		TargetID:       r.TargetID,
		OwnerID:        r.OwnerID,
	}
}

// List fetches the attachments stored for a target.
func (c *Client) List(ctx context.Context, targetID string) ([]attachment.Record, error) {
	var raw []recordJSON
	endpoint := c.baseURL + "/attachments?target=" + url.QueryEscape(targetID)
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("list attachments for %s: %w", targetID, err)
	}
	records := make([]attachment.Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// Metadata resolves a stored-file token into its attachment record.
func (c *Client) Metadata(ctx context.Context, token string) (attachment.Record, error) {
	var raw recordJSON
	endpoint := c.baseURL + "/attachments/" + url.PathEscape(token) + "/metadata"
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return attachment.Record{}, fmt.Errorf("metadata for %s: %w", token, err)
	}
	return raw.toRecord(), nil
}

// SignedURL fetches a time-limited retrieval URL for an attachment.
func (c *Client) SignedURL(ctx context.Context, attachmentID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	endpoint := c.baseURL + "/attachments/" + url.PathEscape(attachmentID) + "/url"
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return "", fmt.Errorf("signed url for %s: %w", attachmentID, err)
	}
	return out.URL, nil
}

// Delete removes a stored attachment.
func (c *Client) Delete(ctx context.Context, attachmentID string) error {
	endpoint := c.baseURL + "/attachments/" + url.PathEscape(attachmentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", attachmentID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("delete %s: %w", attachmentID, decodeError(resp))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}
	return c.hc.Do(req)
}
