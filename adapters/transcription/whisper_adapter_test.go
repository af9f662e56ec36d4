package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

func newTestAdapter(t *testing.T, handler http.Handler) service.Transcriber {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	var cfg config.Config
	cfg.Whisper.URL = ts.URL
	adapter, err := NewWhisperAdapter(cfg, logger.NewNop())
	require.NoError(t, err)
	return adapter
}

func TestNewWhisperAdapter_RequiresURL(t *testing.T) {
	var cfg config.Config
	_, err := NewWhisperAdapter(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transcribe", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://master.example/file.mp4", req["video_url"])

		json.NewEncoder(w).Encode(map[string]string{"transcription": "hola a todos"})
	}))

	text, err := adapter.Transcribe(context.Background(), "https://master.example/file.mp4")
	require.NoError(t, err)
	assert.Equal(t, "hola a todos", text)
}

func TestTranscribe_ServiceError(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "could not download video"})
	}))

	_, err := adapter.Transcribe(context.Background(), "https://master.example/file.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not download video")
}

func TestTranscribe_EmptyTranscription(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"transcription": ""})
	}))

	_, err := adapter.Transcribe(context.Background(), "https://master.example/file.mp4")
	assert.Error(t, err)
}

func TestTranscribe_EmptyURL(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be made for an empty URL")
	}))

	_, err := adapter.Transcribe(context.Background(), "")
	assert.Error(t, err)
}
