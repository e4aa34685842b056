package api

import (
	"context"
	"fmt"
	"net/http"
)

// CreateSession opens a live session for the presentation and returns the
// session id plus the participant invite code.
func (c *Client) CreateSession(ctx context.Context, presentationID string) (SessionResponse, error) {
	req := map[string]string{"presentation_id": presentationID}
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &out); err != nil {
		return SessionResponse{}, err
	}
	return out, nil
}

// StartSession marks the session as running at slide 0.
func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/start", nil, nil)
}

// MoveToSlide navigates the session to the slide at the given order.
func (c *Client) MoveToSlide(ctx context.Context, sessionID string, order int) error {
	req := map[string]int{"slide_order": order}
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/move", req, nil)
}

// InsertSlide adds a slide behind a running session, after the given index.
// The backend answers with the entire updated slide list, not a delta.
func (c *Client) InsertSlide(ctx context.Context, sessionID string, req InsertSlideRequest) ([]SlideItem, error) {
	var out InsertSlideResponse
	if err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/slides", req, &out); err != nil {
		return nil, err
	}
	return out.Slides, nil
}

// FinishSession closes the session without the transcript notification.
func (c *Client) FinishSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/finish", nil, nil)
}

// FinishWithNotification closes the session and hands over the transcript
// so participants get the summary mail.
func (c *Client) FinishWithNotification(ctx context.Context, sessionID, transcript string) error {
	req := map[string]string{"transcript": transcript}
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/finish-notify", req, nil)
}

// EventsURL is the SSE endpoint the presence tracker subscribes to.
func (c *Client) EventsURL(sessionID string) string {
	return fmt.Sprintf("%s/sessions/%s/events", c.baseURL, sessionID)
}

// AuthHeader exposes the bearer header for non-JSON consumers (SSE stream,
// multipart uploads).
func (c *Client) AuthHeader() string {
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}
