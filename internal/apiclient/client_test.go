package apiclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/opsdesk/attachkit/internal/apiclient"
	"github.com/opsdesk/attachkit/internal/uploadserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAttachment(index *uploadserver.Index, token, target, name string) {
	index.Complete(token, uploadserver.StoredAttachment{
		Token:        token,
		TargetKey:    target,
		OriginalName: name,
		FileType:     "application/pdf",
		SizeInBytes:  2048,
		UploadedAt:   time.Now(),
	})
}

func setupAPI(t *testing.T) (*apiclient.Client, *uploadserver.Index) {
	t.Helper()
	index := uploadserver.NewIndex()
	srv := uploadserver.New(uploadserver.Config{Storage: noopStorage{}, Index: index})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return apiclient.New(ts.URL, apiclient.WithHTTPClient(ts.Client())), index
}

type noopStorage struct{}

func (noopStorage) Create(string) error                         { return nil }
func (noopStorage) Append(string, int64, []byte) (int64, error) { return 0, nil }
func (noopStorage) Size(string) (int64, error)                  { return 0, nil }
func (noopStorage) Open(string) (io.ReadCloser, error)          { return nil, os.ErrNotExist }
func (noopStorage) Delete(string) error                         { return nil }

func TestListMapsRecords(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")
	seedAttachment(index, "tok-2", "task-1", "notes.pdf")
	seedAttachment(index, "tok-3", "task-2", "other.pdf")

	records, err := client.List(context.Background(), "task-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tok-1", records[0].ID)
	assert.Equal(t, "manual.pdf", records[0].OriginalName)
	assert.Equal(t, int64(2048), records[0].SizeBytes)
	assert.Equal(t, "task-1", records[0].TargetID)
}

func TestMetadata(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	record, err := client.Metadata(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", record.OriginalName)
	assert.Equal(t, "application/pdf", record.FileType)
}

func TestMetadataNotFound(t *testing.T) {
	client, _ := setupAPI(t)

	_, err := client.Metadata(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "attachment not found", apiErr.Message)
}

func TestListFieldValidationError(t *testing.T) {
	client, _ := setupAPI(t)

	_, err := client.List(context.Background(), "")
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.FieldErrors, "target")
}

func TestSignedURL(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	url, err := client.SignedURL(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Contains(t, url, "/files/tok-1")
	assert.Contains(t, url, "sig=")
}

func TestDelete(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	require.NoError(t, client.Delete(context.Background(), "tok-1"))

	records, err := client.List(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	err = client.Delete(context.Background(), "tok-1")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
