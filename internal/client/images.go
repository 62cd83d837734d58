package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// ListImages returns the images attached to a document.
func (c *Client) ListImages(ctx context.Context, docName string) ([]Image, error) {
	r := request{method: http.MethodGet, path: "/api/documents/images", query: url.Values{"name": {docName}}}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		return nil, err
	}
	resp, err := decode[struct {
		Images []Image `json:"images"`
	}](body)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// ImageContent downloads the raw bytes of an image.
func (c *Client) ImageContent(ctx context.Context, id string) ([]byte, error) {
	r := request{method: http.MethodGet, path: "/api/documents/image/content", query: url.Values{"id": {id}}}
	return c.do(ctx, r, c.retry)
}

// UploadImage attaches an image as a multipart form. When the host rejects
// the multipart request it is retried once as a JSON body with base64 data.
func (c *Client) UploadImage(ctx context.Context, up ImageUpload) (*Image, error) {
	r, err := multipartRequest(up)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		img, jsonErr := c.ImportImage(ctx, up)
		if jsonErr != nil {
			return nil, jsonErr
		}
		return img, nil
	}
	return decodeImage(body)
}

// ImportImage attaches an image using the JSON form of the upload endpoint.
func (c *Client) ImportImage(ctx context.Context, up ImageUpload) (*Image, error) {
	r, err := jsonRequest(http.MethodPost, "/api/documents/image", map[string]any{
		"name":        up.DocName,
		"file_name":   fileName(up.FileName),
		"mime_type":   up.MimeType,
		"data_base64": base64.StdEncoding.EncodeToString(up.Data),
		"caption":     up.Caption,
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r, c.retry)
	if err != nil {
		return nil, err
	}
	return decodeImage(body)
}

// DeleteImage removes an image.
func (c *Client) DeleteImage(ctx context.Context, id string) error {
	r := request{method: http.MethodDelete, path: "/api/documents/image", query: url.Values{"id": {id}}}
	_, err := c.do(ctx, r, c.retry)
	return err
}

func decodeImage(body []byte) (*Image, error) {
	resp, err := decode[struct {
		Image *Image `json:"image"`
	}](body)
	if err != nil {
		return nil, err
	}
	if resp.Image == nil {
		return &Image{}, nil
	}
	return resp.Image, nil
}

func fileName(name string) string {
	if name == "" {
		return "image"
	}
	return name
}

func multipartRequest(up ImageUpload) (request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", up.DocName); err != nil {
		return request{}, fmt.Errorf("multipart: %w", err)
	}
	if up.Caption != nil {
		if err := mw.WriteField("caption", *up.Caption); err != nil {
			return request{}, fmt.Errorf("multipart: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileName(up.FileName))
	if err != nil {
		return request{}, fmt.Errorf("multipart: %w", err)
	}
	if _, err := fw.Write(up.Data); err != nil {
		return request{}, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return request{}, fmt.Errorf("multipart: %w", err)
	}
	return request{
		method:      http.MethodPost,
		path:        "/api/documents/image",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}
