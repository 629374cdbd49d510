package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Project-Sylos/Canopy/internal/pagecache"
	"github.com/Project-Sylos/Canopy/internal/types"
)

var _ pagecache.RemoteStore = (*Client)(nil)

// Client talks to a Canopy page store over HTTP. It implements the remote
// store used by the page cache.
//
// Responses use the {success, message, data} envelope. Status 400 maps to
// types.ErrValidation, 404 to types.ErrNotFound, and every other failure,
// network errors included, to types.ErrTransport.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the store at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", types.ErrTransport, method, path, err)
	}
	return resp, nil
}

// decodeResponse decodes the envelope and unmarshals its data into target
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env envelope
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", types.ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &env) == nil && env.Message != "" {
			message = env.Message
		}

		kind := types.ErrTransport
		switch resp.StatusCode {
		case http.StatusBadRequest:
			kind = types.ErrValidation
		case http.StatusNotFound:
			kind = types.ErrNotFound
		}
		message = strings.TrimPrefix(message, kind.Error()+": ")
		return fmt.Errorf("%w: status=%d: %s", kind, resp.StatusCode, message)
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", types.ErrTransport, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("%w: failed to decode response data: %v", types.ErrTransport, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// Health checks the health status of the store
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// GetPageByID fetches a single page
func (c *Client) GetPageByID(ctx context.Context, id string) (*types.Page, error) {
	var page types.Page
	if err := c.call(ctx, http.MethodGet, "/api/v1/pages/"+url.PathEscape(id), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetSidebarPages fetches one batch of the children of params.ParentPageID
func (c *Client) GetSidebarPages(ctx context.Context, params types.SidebarPagesParams) (*types.PageList, error) {
	query := url.Values{}
	if params.ParentPageID != "" {
		query.Set("parent_page_id", params.ParentPageID)
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	path := "/api/v1/spaces/" + url.PathEscape(params.SpaceID) + "/sidebar"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list types.PageList
	if err := c.call(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		list.Items = []types.Page{}
	}
	return &list, nil
}

// GetRecentChanges fetches the most recently updated pages of a space
func (c *Client) GetRecentChanges(ctx context.Context, spaceID string) ([]types.Page, error) {
	path := "/api/v1/pages/recent"
	if spaceID != "" {
		path += "?" + url.Values{"space_id": {spaceID}}.Encode()
	}

	pages := []types.Page{}
	if err := c.call(ctx, http.MethodGet, path, nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// GetPageBreadcrumbs fetches the ancestor chain of id, root first
func (c *Client) GetPageBreadcrumbs(ctx context.Context, id string) ([]types.Page, error) {
	pages := []types.Page{}
	if err := c.call(ctx, http.MethodGet, "/api/v1/pages/"+url.PathEscape(id)+"/breadcrumbs", nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// CreatePage creates a page. A negative position appends it after its last sibling.
func (c *Client) CreatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	body := map[string]any{
		"space_id":       page.SpaceID,
		"parent_page_id": page.ParentPageID,
		"title":          page.Title,
		"icon":           page.Icon,
		"content":        page.Content,
	}
	if page.Position >= 0 {
		body["position"] = page.Position
	}

	var created types.Page
	if err := c.call(ctx, http.MethodPost, "/api/v1/pages", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePage sends a partial update of page. Only the non-empty title, icon
// and content are sent; the store keeps the other fields as they are.
func (c *Client) UpdatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	body := map[string]any{}
	if page.Title != "" {
		body["title"] = page.Title
	}
	if page.Icon != "" {
		body["icon"] = page.Icon
	}
	if page.Content != "" {
		body["content"] = page.Content
	}

	var updated types.Page
	if err := c.call(ctx, http.MethodPut, "/api/v1/pages/"+url.PathEscape(page.ID), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePage deletes a page and its descendants
func (c *Client) DeletePage(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/pages/"+url.PathEscape(id), nil, nil)
}

// MovePage moves a page under req.ParentPageID at req.Position
func (c *Client) MovePage(ctx context.Context, req types.MovePageRequest) error {
	body := map[string]any{"parent_page_id": req.ParentPageID}
	if req.Position >= 0 {
		body["position"] = req.Position
	}
	return c.call(ctx, http.MethodPost, "/api/v1/pages/"+url.PathEscape(req.PageID)+"/move", body, nil)
}

// Seed asks the store to generate a demo hierarchy in spaceID and returns the number of pages created
func (c *Client) Seed(ctx context.Context, spaceID string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/seed", map[string]any{"space_id": spaceID}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}
