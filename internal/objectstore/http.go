package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-authgate/appgrant/internal/core"

	retry "github.com/appleboy/go-httpretry"
)

var _ core.ObjectStore = (*HTTPStore)(nil)

// HTTPStore talks to a remote object store over its REST API.
// Objects are removed with DELETE <api>/objects/<key> and served from <public>/<key>.
type HTTPStore struct {
	apiURL    string
	publicURL string
	client    *retry.Client
	metrics   core.Recorder
}

// NewHTTPStore creates an HTTP-backed object store.
func NewHTTPStore(
	apiURL, publicURL string,
	opts ClientOptions,
	m core.Recorder,
) (*HTTPStore, error) {
	client, err := newRetryClient(opts)
	if err != nil {
		return nil, err
	}
	if publicURL == "" {
		publicURL = apiURL
	}
	return &HTTPStore{
		apiURL:    strings.TrimRight(apiURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		client:    client,
		metrics:   m,
	}, nil
}

// Delete removes the object stored under key. A 404 means the object is
// already gone and is treated as success.
func (s *HTTPStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	start := time.Now()
	err := s.delete(ctx, key)
	s.metrics.RecordObjectStoreCall("delete", err == nil, time.Since(start))
	return err
}

func (s *HTTPStore) delete(ctx context.Context, key string) error {
	resp, err := s.client.Delete(ctx, s.apiURL+"/objects/"+url.PathEscape(key))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrObjectStoreRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("%w: HTTP %d: %s", ErrObjectStoreResponse, resp.StatusCode, body)
	}
	return nil
}

// URL returns the public display URL for key.
func (s *HTTPStore) URL(key string) string {
	return s.publicURL + "/" + key
}
