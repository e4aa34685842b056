package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadContent stores a canvas-slide JSON blob under the opaque file id.
func (c *Client) UploadContent(ctx context.Context, fileID string, blob []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, c.baseURL+"/content/"+fileID, bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("storage: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return nil
}

// GetContent fetches a canvas-slide JSON blob by its file id.
func (c *Client) GetContent(ctx context.Context, fileID string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/content/"+fileID, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: new request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}
