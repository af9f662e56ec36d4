// Package transcription talks to the self-hosted Whisper sidecar.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

type whisperAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewWhisperAdapter(cfg config.Config, log logger.Logger) (service.Transcriber, error) {
	if cfg.Whisper.URL == "" {
		return nil, fmt.Errorf("whisper service URL has not been configured")
	}
	return &whisperAdapter{
		baseURL: cfg.Whisper.URL,
		// Whisper downloads and transcribes the whole file; budget
		// accordingly.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     log,
	}, nil
}

type transcribeRequest struct {
	VideoURL string `json:"video_url"`
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
	Error         string `json:"error"`
}

func (a *whisperAdapter) Transcribe(ctx context.Context, mediaURL string) (string, error) {
	if mediaURL == "" {
		return "", fmt.Errorf("media URL is empty")
	}

	raw, err := json.Marshal(transcribeRequest{VideoURL: mediaURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcribe", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode whisper response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("whisper service failed: %s", out.Error)
		}
		return "", fmt.Errorf("whisper service failed with status %d", resp.StatusCode)
	}
	if out.Transcription == "" {
		return "", fmt.Errorf("whisper returned an empty transcription")
	}
	return out.Transcription, nil
}
