package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// CacheEntry represents a GitHub Actions cache entry.
type CacheEntry struct {
	ID             int64     `json:"id"`
	Ref            string    `json:"ref"`
	Key            string    `json:"key"`
	Version        string    `json:"version"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	CreatedAt      time.Time `json:"created_at"`
	SizeInBytes    int64     `json:"size_in_bytes"`
}

// CacheList is the response from the cache list endpoint.
type CacheList struct {
	TotalCount int          `json:"total_count"`
	Caches     []CacheEntry `json:"actions_caches"`
}

// CacheClient talks to the GitHub Actions cache REST API for one repository.
type CacheClient struct {
	BaseURL    string
	Repository string
	Token      string
	HTTPClient *http.Client
}

// NewCacheClient creates a cache API client from the runner context.
func (c *Context) NewCacheClient() *CacheClient {
	return &CacheClient{
		BaseURL:    c.APIURL,
		Repository: c.Repository,
		Token:      c.Token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// List returns cache entries whose keys start with keyPrefix.
func (cc *CacheClient) List(ctx context.Context, keyPrefix string) ([]CacheEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/actions/caches?per_page=100&key=%s",
		cc.BaseURL, cc.Repository, url.QueryEscape(keyPrefix))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	cc.setHeaders(req)

	resp, err := cc.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.ErrCacheAPI.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.ErrCacheAPI.WithMessagef("list caches: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var list CacheList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, errors.ErrCacheAPI.WithCause(err)
	}
	return list.Caches, nil
}

// Delete removes a single cache entry by ID.
func (cc *CacheClient) Delete(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/repos/%s/actions/caches/%d", cc.BaseURL, cc.Repository, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	cc.setHeaders(req)

	resp, err := cc.HTTPClient.Do(req)
	if err != nil {
		return errors.ErrCacheAPI.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.ErrCacheAPI.WithMessagef("delete cache %d: HTTP %d: %s", id, resp.StatusCode, string(body))
	}
	return nil
}

// DeleteStale removes every cache entry matching restoreKeyPrefix except
// the one named keepKey. Called after a successful rebuild so unrelated
// configurations never accumulate dead toolchain caches.
func (cc *CacheClient) DeleteStale(ctx context.Context, restoreKeyPrefix, keepKey string) (int, error) {
	entries, err := cc.List(ctx, restoreKeyPrefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.Key == keepKey {
			continue
		}
		if err := cc.Delete(ctx, entry.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (cc *CacheClient) setHeaders(req *http.Request) {
	if cc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cc.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
