// Package registry is a minimal client for the registry HTTP API the
// staging garbage collector consumes: project-scoped repositories, tag
// listings with digest and size, tag deletion, and manifest deletion for
// dangling-manifest sweeps.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrNotFound is returned when the registry reports 404 for a tag or
// manifest. Callers treat deletion of a missing object as already
// satisfied.
var ErrNotFound = errors.New("not found in registry")

const tagsPerPage = 100

// Repository is one image repository within the registry project.
type Repository struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Tag is one tag of a repository, with the digest and total size the
// registry reports for it.
type Tag struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	TotalSize int64  `json:"total_size"`
}

// Manifest is one stored manifest, independent of whether any tag
// references it.
type Manifest struct {
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// Client is the registry API surface the garbage collector needs.
type Client interface {
	Repositories(ctx context.Context) ([]Repository, error)
	Tags(ctx context.Context, repoID int) ([]Tag, error)
	DeleteTag(ctx context.Context, repoID int, name string) error
	Manifests(ctx context.Context, repoID int) ([]Manifest, error)
	DeleteManifest(ctx context.Context, repoID int, digest string) error
}

// HTTPClient talks to the registry API over HTTP with a bearer credential.
type HTTPClient struct {
	baseURL   string
	projectID string
	token     string
	client    *http.Client
}

// NewClient creates a registry API client for one project.
func NewClient(baseURL, projectID, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		projectID: projectID,
		token:     token,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Repositories(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	url := fmt.Sprintf("%s/projects/%s/registry/repositories", c.baseURL, c.projectID)
	if err := c.getJSON(ctx, url, &repos); err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return repos, nil
}

// Tags lists every tag of a repository, following pagination until the
// registry reports no further page.
func (c *HTTPClient) Tags(ctx context.Context, repoID int) ([]Tag, error) {
	var all []Tag
	for page := 1; page > 0; {
		url := fmt.Sprintf("%s/projects/%s/registry/repositories/%d/tags?per_page=%d&page=%d",
			c.baseURL, c.projectID, repoID, tagsPerPage, page)
		resp, err := c.do(ctx, http.MethodGet, url)
		if err != nil {
			return nil, fmt.Errorf("listing tags page %d: %w", page, err)
		}
		var tags []Tag
		err = json.NewDecoder(resp.Body).Decode(&tags)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding tags page %d: %w", page, err)
		}
		all = append(all, tags...)

		next := resp.Header.Get("X-Next-Page")
		if next == "" {
			break
		}
		page, err = strconv.Atoi(next)
		if err != nil {
			break
		}
	}
	return all, nil
}

func (c *HTTPClient) DeleteTag(ctx context.Context, repoID int, name string) error {
	url := fmt.Sprintf("%s/projects/%s/registry/repositories/%d/tags/%s", c.baseURL, c.projectID, repoID, name)
	return c.delete(ctx, url)
}

func (c *HTTPClient) Manifests(ctx context.Context, repoID int) ([]Manifest, error) {
	var manifests []Manifest
	url := fmt.Sprintf("%s/projects/%s/registry/repositories/%d/manifests", c.baseURL, c.projectID, repoID)
	if err := c.getJSON(ctx, url, &manifests); err != nil {
		return nil, fmt.Errorf("listing manifests: %w", err)
	}
	return manifests, nil
}

func (c *HTTPClient) DeleteManifest(ctx context.Context, repoID int, digest string) error {
	url := fmt.Sprintf("%s/projects/%s/registry/repositories/%d/manifests/%s", c.baseURL, c.projectID, repoID, digest)
	return c.delete(ctx, url)
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *HTTPClient) delete(ctx context.Context, url string) error {
	resp, err := c.do(ctx, http.MethodDelete, url)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, body)
	}
	return resp, nil
}
