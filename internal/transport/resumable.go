// Package transport implements the resumable upload protocol the
// platform's upload endpoint speaks. An upload key is an opaque URL
// obtained from a prior API call against the owning entity; creating
// a session against it yields a session URL that accepts the file in
// offset-addressed chunks.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/opsdesk/attachkit/internal/attachment"
)

const DefaultChunkSize = 64 * 1024 // 64KB chunks

// Protocol headers.
const (
	HeaderUploadOffset = "Upload-Offset"
	HeaderUploadLength = "Upload-Length"
)

var errNoOpener = errors.New("queue item has no content opener")

// ResumableClient implements uploader.Transport over HTTP.
type ResumableClient struct {
	hc        *http.Client
	chunkSize int
	logger    *zap.Logger
}

type Option func(*ResumableClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *ResumableClient) { c.hc = hc }
}

func WithChunkSize(n int) Option {
	return func(c *ResumableClient) { c.chunkSize = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *ResumableClient) { c.logger = logger }
}

func NewResumableClient(opts ...Option) *ResumableClient {
	c := &ResumableClient{
		hc:        http.DefaultClient,
		chunkSize: DefaultChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRequest struct {
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	SizeBytes   int64             `json:"sizeBytes"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type sessionResponse struct {
	Token string `json:"token,omitempty"`
}

// Upload opens a session against the upload key, streams the item in
// chunks and returns the stored-file token from the terminal response.
// Cancelling the context aborts the in-flight request.
func (c *ResumableClient) Upload(ctx context.Context, uploadKey string, item attachment.QueueItem, metadata map[string]string, progress func(sent, total int64)) (string, error) {
	if item.Open == nil {
		return "", errNoOpener
	}
	content, err := item.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", item.Filename, err)
	}
	defer content.Close()

	sessionURL, token, err := c.createSession(ctx, uploadKey, item, metadata)
	if err != nil {
		return "", err
	}
	if item.SizeBytes == 0 {
		// Nothing to stream; the create response finalized the upload.
		progress(0, 0)
		return token, nil
	}

	c.logger.Debug("upload session created",
		zap.String("filename", item.Filename),
		zap.String("session_url", sessionURL),
	)

	buffer := make([]byte, c.chunkSize)
	sent := int64(0)
	for {
		n, readErr := content.Read(buffer)
		if n > 0 {
			tok, err := c.sendChunk(ctx, sessionURL, sent, buffer[:n])
			if err != nil {
				return "", err
			}
			sent += int64(n)
			progress(sent, item.SizeBytes)
			if tok != "" {
				token = tok
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read %s: %w", item.Filename, readErr)
		}
	}

	if token == "" {
		return "", fmt.Errorf("upload %s: server never finalized the session", item.Filename)
	}
	return token, nil
}

// Offset probes how many bytes the server already holds for a session,
// so an interrupted upload can resume where it stopped.
func (c *ResumableClient) Offset(ctx context.Context, sessionURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sessionURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("offset probe: unexpected status %s", resp.Status)
	}
	return strconv.ParseInt(resp.Header.Get(HeaderUploadOffset), 10, 64)
}

func (c *ResumableClient) createSession(ctx context.Context, uploadKey string, item attachment.QueueItem, metadata map[string]string) (string, string, error) {
	body, err := json.Marshal(createRequest{
		Filename:    item.Filename,
		ContentType: DetectContentType(item.Filename),
		SizeBytes:   item.SizeBytes,
		Metadata:    metadata,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadKey, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUploadLength, strconv.FormatInt(item.SizeBytes, 10))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("create session: unexpected status %s", resp.Status)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", "", fmt.Errorf("create session: decode response: %w", err)
	}

	loc, err := resp.Location()
	if err != nil {
		if item.SizeBytes == 0 && out.Token != "" {
			return "", out.Token, nil
		}
		return "", "", fmt.Errorf("create session: missing location: %w", err)
	}
	return loc.String(), out.Token, nil
}

func (c *ResumableClient) sendChunk(ctx context.Context, sessionURL string, offset int64, chunk []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.Header.Set(HeaderUploadOffset, strconv.FormatInt(offset, 10))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chunk at %d: %w", offset, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return "", nil
	case http.StatusOK:
		// Terminal response: the session is complete.
		var out sessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode terminal response: %w", err)
		}
		return out.Token, nil
	default:
		return "", fmt.Errorf("chunk at %d rejected: %s", offset, resp.Status)
	}
}

// DetectContentType derives a MIME type from the filename extension,
// falling back to octet-stream.
func DetectContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
