package avatar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func testConfig() config.AvatarConfig {
	return config.AvatarConfig{
		StorageBaseURL: "https://proj.supabase.co/",
		Placeholder:    "/noprofile.png",
		CacheSize:      2,
		CacheTTL:       time.Minute,
	}
}

func TestResolvePublic(t *testing.T) {
	r := NewResolver(testConfig(), nil)
	ctx := context.Background()

	assert.Equal(t, "/noprofile.png", r.Resolve(ctx, nil))
	assert.Equal(t, "/noprofile.png", r.Resolve(ctx, ptr("  ")))
	assert.Equal(t, "https://cdn.example.com/me.jpg", r.Resolve(ctx, ptr("https://cdn.example.com/me.jpg")))
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/avatars/u1.png",
		r.Resolve(ctx, ptr("avatars/u1.png")))
	assert.Equal(t, 1, r.Len())
}

func TestResolveSignedIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"url":"https://signed.example.com/%s?token=abc"}`, req.URL.Query().Get("path"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.SignEndpoint = srv.URL + "/sign"
	r := NewResolver(cfg, srv.Client())
	ctx := context.Background()

	want := "https://signed.example.com/avatars/u1.png?token=abc"
	assert.Equal(t, want, r.Resolve(ctx, ptr("avatars/u1.png")))
	assert.Equal(t, want, r.Resolve(ctx, ptr("avatars/u1.png")))
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveFailureNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.SignEndpoint = srv.URL
	r := NewResolver(cfg, srv.Client())

	assert.Equal(t, "/noprofile.png", r.Resolve(context.Background(), ptr("avatars/u1.png")))
	assert.Equal(t, 0, r.Len())
}

func TestResolveCacheIsBounded(t *testing.T) {
	r := NewResolver(testConfig(), nil)
	ctx := context.Background()
	for _, p := range []string{"a.png", "b.png", "c.png", "d.png"} {
		r.Resolve(ctx, ptr(p))
	}
	assert.Equal(t, 2, r.Len())
}
