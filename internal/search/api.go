package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// APIConfig configures the Custom Search API backend.
type APIConfig struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the service base URL; empty uses the public one.
	Endpoint string
	Timeout  time.Duration
	Num      int
}

// APIBackend queries the Custom Search JSON API.
type APIBackend struct {
	cfg APIConfig
	svc *customsearch.Service
}

// NewAPIBackend creates the API backend. Without an API key, or when the
// service cannot be built, the backend stays disabled.
func NewAPIBackend(cfg APIConfig) *APIBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Num <= 0 || cfg.Num > 10 {
		cfg.Num = 10
	}

	b := &APIBackend{cfg: cfg}
	if cfg.APIKey == "" {
		return b
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(context.Background(), opts...)
	if err != nil {
		logrus.Errorf("Failed to create custom search service: %v", err)
		return b
	}
	b.svc = svc
	return b
}

func (b *APIBackend) Name() string { return SourceAPI }

// Enabled reports whether the API may be called for this run.
func (b *APIBackend) Enabled(st *State) bool {
	return st.APIEnabled && b.svc != nil
}

// Search runs the query. A 400 or 403 answer means the engine id is missing
// or the quota is spent; the API is then disabled for the rest of the run.
func (b *APIBackend) Search(ctx context.Context, st *State, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	if b.svc == nil {
		return nil, errors.New("custom search service not configured")
	}

	call := b.svc.Cse.List().Q(query).Num(int64(b.cfg.Num)).Safe("active")
	if b.cfg.EngineID != "" {
		call = call.Cx(b.cfg.EngineID)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case http.StatusBadRequest:
				logrus.Warn("Search API rejected the request (missing engine id?), switching to HTML")
				st.DisableAPI()
				return nil, nil
			case http.StatusForbidden:
				logrus.Warn("Search API quota exceeded, switching to HTML")
				st.DisableAPI()
				return nil, nil
			}
		}
		return nil, fmt.Errorf("search API call failed: %w", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		results = append(results, Result{
			Link:    item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Source:  SourceAPI,
		})
	}
	return results, nil
}
