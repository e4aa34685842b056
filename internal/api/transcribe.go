package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/pkg/errs"
)

// Transcribe uploads an audio clip and returns the recognised text. Only a
// "completed" status counts as success; a completed-but-empty transcript
// maps to domain.ErrTranscriptEmpty so callers can skip the window quietly.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("transcribe: open clip: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var out TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode transcription: %v", errs.ErrUpstream, err)
	}
	if out.Status != "completed" {
		return "", fmt.Errorf("%w: transcription status %q", errs.ErrUpstream, out.Status)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", domain.ErrTranscriptEmpty
	}
	return out.Text, nil
}
