// Package faceclient calls the external face embedding microservice.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoFaceDetected signals that the service processed the image but found
// no face in it. It is distinct from transport or model failures so callers
// never mistake a missing face for a broken extractor.
var ErrNoFaceDetected = errors.New("faceclient: no face detected")

// Client wraps the embedding service HTTP API. Extraction is the only slow
// call in the marking pipeline; the caller bounds it with a context deadline.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Extract requests a face embedding for an image stored on the shared
// uploads volume. It never fabricates a placeholder vector: a missing face
// returns ErrNoFaceDetected and anything else returns a processing error.
func (c *Client) Extract(ctx context.Context, imagePath string) ([]float64, error) {
	if imagePath == "" {
		return nil, fmt.Errorf("faceclient: image path required")
	}

	body, err := json.Marshal(map[string]string{"image_path": imagePath})
	if err != nil {
		return nil, fmt.Errorf("faceclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("faceclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrNoFaceDetected
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("faceclient: service error %s: %s", resp.Status, string(raw))
	}

	var out struct {
		Embedding     []float64 `json:"embedding"`
		FacesDetected int       `json:"faces_detected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("faceclient: decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrNoFaceDetected
	}

	return out.Embedding, nil
}

// Health checks if the embedding service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("faceclient: service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("faceclient: service unhealthy: %s", resp.Status)
	}

	return nil
}
