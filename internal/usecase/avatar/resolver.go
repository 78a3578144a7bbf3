// Package avatar turns stored avatar references into URLs a client can load.
package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const publicObjectPath = "/storage/v1/object/public/"

type signResponse struct {
	URL string `json:"url"`
}

// Resolver maps a reference to a URL. A reference is either an absolute
// http(s) URL, used as is, or a storage object path that is signed through
// the sign endpoint when one is configured and made public otherwise.
// Resolved URLs are cached; failures fall back to the placeholder and are
// not cached.
type Resolver struct {
	baseURL      string
	signEndpoint string
	placeholder  string
	client       *http.Client
	cache        *expirable.LRU[string, string]
}

func NewResolver(cfg config.AvatarConfig, client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		baseURL:      strings.TrimRight(cfg.StorageBaseURL, "/"),
		signEndpoint: cfg.SignEndpoint,
		placeholder:  cfg.Placeholder,
		client:       client,
		cache:        expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

func (r *Resolver) Resolve(ctx context.Context, ref *string) string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return r.placeholder
	}
	path := strings.TrimSpace(*ref)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	if cached, ok := r.cache.Get(path); ok {
		return cached
	}

	resolved, err := r.resolve(ctx, path)
	if err != nil {
		logger.Warn("resolve avatar %q: %v", path, err)
		return r.placeholder
	}
	r.cache.Add(path, resolved)
	return resolved
}

func (r *Resolver) resolve(ctx context.Context, path string) (string, error) {
	if r.signEndpoint != "" {
		return r.sign(ctx, path)
	}
	if r.baseURL == "" {
		return "", fmt.Errorf("no storage base url configured")
	}
	return r.baseURL + publicObjectPath + strings.TrimLeft(path, "/"), nil
}

func (r *Resolver) sign(ctx context.Context, path string) (string, error) {
	endpoint, err := url.Parse(r.signEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid sign endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("path", path)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign endpoint returned %s", resp.Status)
	}
	var body signResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("sign endpoint returned no url")
	}
	return body.URL, nil
}

// Len returns the number of cached URLs.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
