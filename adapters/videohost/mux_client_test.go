package videohost

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

func testConfig(baseURL string) config.Config {
	var cfg config.Config
	cfg.Mux.TokenID = "token-id"
	cfg.Mux.TokenSecret = "token-secret"
	cfg.Mux.BaseURL = baseURL
	return cfg
}

func newTestClient(t *testing.T, handler http.Handler) (service.VideoHost, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewMuxClient(testConfig(ts.URL), logger.NewNop())
	require.NoError(t, err)
	return client, ts
}

func TestNewMuxClient_RequiresCredentials(t *testing.T) {
	var cfg config.Config
	_, err := NewMuxClient(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestCreateDirectUpload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/video/v1/uploads", r.URL.Path)

		username, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "token-id", username)
		assert.Equal(t, "token-secret", password)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		settings, ok := body["new_asset_settings"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "temporary", settings["master_access"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":  "upload-123",
				"url": "https://storage.example/put-here",
			},
		})
	}))

	upload, err := client.CreateDirectUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "upload-123", upload.ID)
	assert.Equal(t, "https://storage.example/put-here", upload.URL)
}

func TestGetUpload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/v1/uploads/upload-123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":       "upload-123",
				"status":   "asset_created",
				"asset_id": "asset-456",
			},
		})
	}))

	status, err := client.GetUpload(context.Background(), "upload-123")
	require.NoError(t, err)
	assert.Equal(t, "asset-456", status.AssetID)
	assert.Equal(t, "asset_created", status.Status)
}

func TestGetAsset(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/v1/assets/asset-456", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":         "asset-456",
				"status":     "ready",
				"duration":   421.5,
				"created_at": "1700000000",
				"playback_ids": []map[string]any{
					{"id": "pb-1", "policy": "signed"},
				},
				"master": map[string]any{
					"status": "ready",
					"url":    "https://master.example/file.mp4",
				},
			},
		})
	}))

	asset, err := client.GetAsset(context.Background(), "asset-456")
	require.NoError(t, err)
	assert.Equal(t, "asset-456", asset.ID)
	assert.True(t, asset.FullyReady())
	assert.Equal(t, 421.5, asset.DurationSeconds)
	assert.Equal(t, "pb-1", asset.FirstPlaybackID())
	assert.Equal(t, "https://master.example/file.mp4", asset.MasterURL)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), asset.CreatedAt)
}

func TestGetAsset_WithoutMaster(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "asset-456", "status": "preparing"},
		})
	}))

	asset, err := client.GetAsset(context.Background(), "asset-456")
	require.NoError(t, err)
	assert.False(t, asset.FullyReady())
	assert.Empty(t, asset.MasterURL)
	assert.Empty(t, asset.FirstPlaybackID())
}

func TestEnableMasterAccess(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/video/v1/assets/asset-456/master-access", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{}}`))
	}))

	require.NoError(t, client.EnableMasterAccess(context.Background(), "asset-456"))
	assert.Equal(t, "temporary", gotBody["master_access"])
}

func TestDo_DecodesAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"unauthorized","messages":["bad credentials"]}}`))
	}))

	_, err := client.GetAsset(context.Background(), "asset-456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestSignPlaybackToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	cfg := testConfig("https://api.example")
	cfg.Mux.SigningKeyID = "signing-key-1"
	cfg.Mux.SigningKeyPEM = string(pemBytes)

	client, err := NewMuxClient(cfg, logger.NewNop())
	require.NoError(t, err)

	signed, err := client.SignPlaybackToken("pb-1", service.PlaybackTokenThumbnail, time.Hour)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience("t"))
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "pb-1", claims["sub"])
	assert.Equal(t, "signing-key-1", claims["kid"])
	assert.Equal(t, "signing-key-1", token.Header["kid"])
}

func TestSignPlaybackToken_WithoutKey(t *testing.T) {
	client, err := NewMuxClient(testConfig("https://api.example"), logger.NewNop())
	require.NoError(t, err)

	_, err = client.SignPlaybackToken("pb-1", service.PlaybackTokenVideo, time.Hour)
	assert.Error(t, err)
}
