package client

import (
	"context"
	"net/http"
	"net/url"
)

// ListDocuments returns every stored document, without content.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/documents"}, c.retry)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Documents []DocumentSummary `json:"documents"`
	}](body)
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// GetDocument returns one document with its content.
func (c *Client) GetDocument(ctx context.Context, name string) (*Document, error) {
	r := request{method: http.MethodGet, path: "/api/documents/content", query: url.Values{"name": {name}}}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Document Document `json:"document"`
	}](body)
	if err != nil {
		return nil, err
	}
	if resp.Document.Name == "" {
		resp.Document.Name = name
	}
	return &resp.Document, nil
}

// SaveDocument stores text under name. A non-empty oldName different from
// name renames the document.
func (c *Client) SaveDocument(ctx context.Context, name, oldName, text string) (*Document, error) {
	r, err := jsonRequest(http.MethodPost, "/api/documents/text", map[string]string{
		"name":     name,
		"old_name": oldName,
		"text":     text,
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Document *Document `json:"document"`
	}](body)
	if err != nil {
		return nil, err
	}
	if resp.Document == nil {
		return &Document{Name: name, Content: text, Characters: len([]rune(text))}, nil
	}
	return resp.Document, nil
}

// DeleteAllDocuments removes every document. It is never retried.
func (c *Client) DeleteAllDocuments(ctx context.Context) (int, error) {
	body, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/documents"}, NoRetry)
	if err != nil {
		return 0, err
	}
	resp, err := decode[struct {
		Deleted int `json:"deleted"`
	}](body)
	if err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}
