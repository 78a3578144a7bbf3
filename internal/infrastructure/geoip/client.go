// Package geoip resolves a coarse position from a caller's public IP address.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/geo"
)

type lookupResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Client queries an ipapi.co compatible JSON endpoint.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(lookupURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{url: lookupURL, client: client}
}

// Lookup returns the position for ip. An empty ip asks the service about the
// address the request comes from.
func (c *Client) Lookup(ctx context.Context, ip string) (domain.Coordinates, error) {
	endpoint, err := c.endpoint(ip)
	if err != nil {
		return domain.Coordinates{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("build geoip request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrFallbackUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("%w: lookup returned %s", domain.ErrFallbackUnavailable, resp.Status)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: decode response: %v", domain.ErrFallbackUnavailable, err)
	}
	if body.Error {
		return domain.Coordinates{}, fmt.Errorf("%w: %s", domain.ErrFallbackUnavailable, body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return domain.Coordinates{}, fmt.Errorf("%w: response has no coordinates", domain.ErrFallbackUnavailable)
	}

	pos := domain.Coordinates{Lat: *body.Latitude, Lon: *body.Longitude}
	if err := geo.ValidateCoordinates(pos); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrFallbackUnavailable, err)
	}
	return pos, nil
}

// endpoint turns https://ipapi.co/json/ into https://ipapi.co/<ip>/json/.
// Private and loopback addresses mean nothing to the service and are dropped.
func (c *Client) endpoint(ip string) (string, error) {
	if !routable(ip) {
		return c.url, nil
	}
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid geoip url: %w", err)
	}
	path := strings.TrimPrefix(u.Path, "/")
	u.Path = "/" + url.PathEscape(ip) + "/" + path
	return u.String(), nil
}

func routable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified()
}
