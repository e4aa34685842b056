package api

import (
	"context"
	"net/http"
)

// CreatePresentation persists a brand-new deck. Every slide travels in
// AddedSlides; the response carries the issued identifiers.
func (c *Client) CreatePresentation(ctx context.Context, req SavePresentationRequest) (PresentationResponse, error) {
	var out PresentationResponse
	if err := c.do(ctx, http.MethodPost, "/presentations", req, &out); err != nil {
		return PresentationResponse{}, err
	}
	return out, nil
}

// UpdatePresentation applies a partitioned added/updated/deleted edit to an
// existing deck and returns the authoritative slide list.
func (c *Client) UpdatePresentation(ctx context.Context, id string, req SavePresentationRequest) (PresentationResponse, error) {
	var out PresentationResponse
	if err := c.do(ctx, http.MethodPut, "/presentations/"+id, req, &out); err != nil {
		return PresentationResponse{}, err
	}
	return out, nil
}

// GetPresentation fetches one deck with its ordered slide list.
func (c *Client) GetPresentation(ctx context.Context, id string) (PresentationResponse, error) {
	var out PresentationResponse
	if err := c.do(ctx, http.MethodGet, "/presentations/"+id, nil, &out); err != nil {
		return PresentationResponse{}, err
	}
	return out, nil
}
