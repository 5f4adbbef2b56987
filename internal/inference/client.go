// Package inference calls the external disease-prediction endpoint.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Predict when no endpoint URL is set.
var ErrNotConfigured = errors.New("inference endpoint is not configured")

type Client struct {
	url  string
	mode string
	http *http.Client
}

func NewClient(url, mode string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		mode: mode,
		http: &http.Client{Timeout: timeout},
	}
}

// Request carries either raw image bytes or a URL the endpoint can fetch.
type Request struct {
	Image    []byte
	ImageURL string
	Plant    string
	Mode     string
}

type Result struct {
	Disease    string
	Confidence float64
}

type requestBody struct {
	Image    string `json:"image,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Plant    string `json:"plant,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type responseBody struct {
	Prediction       string          `json:"prediction"`
	PredictedDisease string          `json:"predicted_disease"`
	Confidence       json.RawMessage `json:"confidence"`
	Error            string          `json:"error"`
}

// Predict posts a single request. It never retries; the caller decides what
// a failure means.
func (c *Client) Predict(ctx context.Context, req Request) (*Result, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	body := requestBody{
		ImageURL: req.ImageURL,
		Plant:    req.Plant,
		Mode:     req.Mode,
	}
	if body.Mode == "" {
		body.Mode = c.mode
	}
	if len(req.Image) > 0 {
		body.Image = base64.StdEncoding.EncodeToString(req.Image)
	}
	if body.Image == "" && body.ImageURL == "" {
		return nil, errors.New("inference request has no image")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out responseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inference endpoint error: %s", out.Error)
	}

	disease := strings.TrimSpace(out.Prediction)
	if disease == "" {
		disease = strings.TrimSpace(out.PredictedDisease)
	}
	if disease == "" {
		return nil, errors.New("inference response has no prediction")
	}

	confidence, err := parseConfidence(out.Confidence)
	if err != nil {
		return nil, err
	}

	return &Result{Disease: disease, Confidence: confidence}, nil
}

// parseConfidence accepts 0.93, "0.93", 93 or "93%" and normalizes to [0,1].
func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("inference response has no confidence")
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid confidence %s", raw)
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		v, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q", s)
		}
	}

	if v > 1 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("confidence %v out of range", v)
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
