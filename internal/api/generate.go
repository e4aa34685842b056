package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voltclass/presenterd/pkg/errs"
)

// GenerateSlides asks the AI service for deck suggestions from free text
// (a lecture transcript or an imported document).
func (c *Client) GenerateSlides(ctx context.Context, language, text string) (GenerateResponse, error) {
	req := GenerateRequest{Language: language, Text: text}
	var out GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/ai/slides", req, &out); err != nil {
		return GenerateResponse{}, err
	}
	return out, nil
}

// RegenerateSlide rewrites a single canvas slide from an instruction plus
// the slide's current content.
func (c *Client) RegenerateSlide(ctx context.Context, language, instruction string, current json.RawMessage) (RegenerateResponse, error) {
	req := GenerateRequest{Language: language, Text: instruction, InitialData: current}
	var out RegenerateResponse
	if err := c.do(ctx, http.MethodPost, "/ai/regenerate", req, &out); err != nil {
		return RegenerateResponse{}, err
	}
	if out.Elements == nil {
		return RegenerateResponse{}, fmt.Errorf("%w: regeneration response missing elements", errs.ErrUpstream)
	}
	return out, nil
}
