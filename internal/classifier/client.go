package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrVectorLength = errors.New("invalid_vector_length")

// Client talks to the external sign classification service. It holds no
// state between calls; a timeout is an error like any other and is up to
// the caller to absorb.
type Client struct {
	baseURL string
	inner   *http.Client
	allowed map[int]struct{}
}

func New(baseURL string, timeout time.Duration, vectorLengths []int) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	allowed := make(map[int]struct{}, len(vectorLengths))
	for _, n := range vectorLengths {
		if n > 0 {
			allowed[n] = struct{}{}
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		inner:   &http.Client{Timeout: timeout},
		allowed: allowed,
	}
}

// ValidLength reports whether a feature vector may be sent upstream at all.
func (c *Client) ValidLength(n int) bool {
	_, ok := c.allowed[n]
	return ok
}

type predictRequest struct {
	Landmarks []float64 `json:"landmarks"`
}

type predictResponse struct {
	Predicted string `json:"predicted"`
	Error     string `json:"error"`
}

// Predict sends one feature vector and returns the predicted label. An
// empty string with nil error means the service saw nothing recognizable
// this tick. Wrong-length vectors are rejected locally, never sent.
func (c *Client) Predict(ctx context.Context, vec []float64) (string, error) {
	if !c.ValidLength(len(vec)) {
		return "", ErrVectorLength
	}
	raw, err := json.Marshal(predictRequest{Landmarks: vec})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict_frame", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.inner.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out predictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("classifier error: %s", out.Error)
		}
		return "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if out.Error != "" {
		return "", fmt.Errorf("classifier error: %s", out.Error)
	}
	// The service reports "None" when no hand is in frame.
	if out.Predicted == "" || strings.EqualFold(out.Predicted, "none") {
		return "", nil
	}
	return out.Predicted, nil
}
