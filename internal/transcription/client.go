package transcription

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

// ErrEmptyTranscript is returned when the API completes a job with no
// recognized speech. Callers treat it like any other transcription failure.
var ErrEmptyTranscript = errors.New("transcription returned empty text")

// Config contains transcription client configuration.
type Config struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Client talks to the remote transcription API as an opaque two-step
// operation: upload the audio bytes, then create a transcript job and poll
// it to completion. Latency is unbounded on the API side; callers bound it
// through the context.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a transcription client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Upload sends raw audio bytes to the API and returns the handle to pass to
// Transcribe.
func (c *Client) Upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.Endpoint+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return resp.UploadURL, nil
}

// Transcribe creates a transcript job for a previously uploaded handle and
// polls until the API reports completion. Returns ErrEmptyTranscript when
// the job completes with no text.
func (c *Client) Transcribe(ctx context.Context, handle, language string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: handle, LanguageCode: language})
	if err != nil {
		return "", fmt.Errorf("encoding transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.Endpoint+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var created transcriptResponse
	if err := c.do(req, &created); err != nil {
		return "", fmt.Errorf("creating transcript: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}

	return c.poll(ctx, created.ID)
}

// poll fetches transcript status until the job leaves the queue.
func (c *Client) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.config.Endpoint+"/v2/transcript/"+id, nil)
		if err != nil {
			return "", fmt.Errorf("building poll request: %w", err)
		}
		req.Header.Set("Authorization", c.config.APIKey)

		var status transcriptResponse
		if err := c.do(req, &status); err != nil {
			return "", fmt.Errorf("polling transcript %s: %w", id, err)
		}

		switch status.Status {
		case "completed":
			if status.Text == "" {
				return "", ErrEmptyTranscript
			}
			return status.Text, nil
		case "error":
			return "", fmt.Errorf("transcription failed: %s", status.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
