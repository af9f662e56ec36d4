// Package videohost implements the service.VideoHost port against the Mux
// Video REST API.
package videohost

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

const defaultBaseURL = "https://api.mux.com"

type muxClient struct {
	baseURL      string
	tokenID      string
	tokenSecret  string
	signingKeyID string
	signingKey   *rsa.PrivateKey
	httpClient   *http.Client
	logger       logger.Logger
}

func NewMuxClient(cfg config.Config, log logger.Logger) (service.VideoHost, error) {
	if cfg.Mux.TokenID == "" || cfg.Mux.TokenSecret == "" {
		return nil, fmt.Errorf("mux token_id/token_secret have not been configured")
	}

	c := &muxClient{
		baseURL:      cfg.Mux.BaseURL,
		tokenID:      cfg.Mux.TokenID,
		tokenSecret:  cfg.Mux.TokenSecret,
		signingKeyID: cfg.Mux.SigningKeyID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       log,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}

	if cfg.Mux.SigningKeyPEM != "" {
		key, err := parseSigningKey(cfg.Mux.SigningKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("cannot parse mux signing key: %w", err)
		}
		c.signingKey = key
	} else {
		log.Warn("Mux signing key not configured, playback token signing is disabled")
	}

	return c, nil
}

// Mux hands signing keys out base64-encoded; accept that or a raw PEM.
func parseSigningKey(raw string) (*rsa.PrivateKey, error) {
	pemBytes := []byte(raw)
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		pemBytes = decoded
	}
	return jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
}

// Wire envelopes. Mux wraps every response in a "data" object and reports
// asset creation time as an epoch-seconds string.

type directUploadData struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	AssetID string `json:"asset_id"`
}

type playbackIDData struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

type masterData struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type assetData struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Duration    float64          `json:"duration"`
	CreatedAt   string           `json:"created_at"`
	PlaybackIDs []playbackIDData `json:"playback_ids"`
	Master      *masterData      `json:"master"`
}

type muxError struct {
	Error struct {
		Type     string   `json:"type"`
		Messages []string `json:"messages"`
	} `json:"error"`
}

func (c *muxClient) CreateDirectUpload(ctx context.Context) (*service.DirectUpload, error) {
	body := map[string]any{
		"cors_origin": "*",
		"new_asset_settings": map[string]any{
			"playback_policy": []string{"signed"},
			"master_access":   "temporary",
		},
	}

	var out struct {
		Data directUploadData `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", body, &out); err != nil {
		return nil, err
	}
	return &service.DirectUpload{ID: out.Data.ID, URL: out.Data.URL}, nil
}

func (c *muxClient) GetUpload(ctx context.Context, uploadID string) (*service.UploadStatus, error) {
	var out struct {
		Data directUploadData `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/video/v1/uploads/"+uploadID, nil, &out); err != nil {
		return nil, err
	}
	return &service.UploadStatus{
		ID:      out.Data.ID,
		AssetID: out.Data.AssetID,
		Status:  out.Data.Status,
	}, nil
}

func (c *muxClient) GetAsset(ctx context.Context, assetID string) (*service.Asset, error) {
	var out struct {
		Data assetData `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil, &out); err != nil {
		return nil, err
	}

	asset := &service.Asset{
		ID:              out.Data.ID,
		Status:          out.Data.Status,
		DurationSeconds: out.Data.Duration,
	}
	for _, p := range out.Data.PlaybackIDs {
		asset.PlaybackIDs = append(asset.PlaybackIDs, p.ID)
	}
	if out.Data.Master != nil {
		asset.MasterStatus = out.Data.Master.Status
		asset.MasterURL = out.Data.Master.URL
	}
	if epoch, err := strconv.ParseInt(out.Data.CreatedAt, 10, 64); err == nil {
		asset.CreatedAt = time.Unix(epoch, 0).UTC()
	}
	return asset, nil
}

func (c *muxClient) EnableMasterAccess(ctx context.Context, assetID string) error {
	body := map[string]any{"master_access": "temporary"}
	return c.do(ctx, http.MethodPut, "/video/v1/assets/"+assetID+"/master-access", body, nil)
}

func (c *muxClient) SignPlaybackToken(playbackID string, kind service.PlaybackTokenKind, ttl time.Duration) (string, error) {
	if c.signingKey == nil || c.signingKeyID == "" {
		return "", fmt.Errorf("mux signing key is not configured")
	}

	claims := jwt.MapClaims{
		"sub": playbackID,
		"aud": string(kind),
		"exp": time.Now().Add(ttl).Unix(),
		"kid": c.signingKeyID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.signingKeyID

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign playback token: %w", err)
	}
	return signed, nil
}

func (c *muxClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal mux request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build mux request: %w", err)
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mux request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr muxError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && len(apiErr.Error.Messages) > 0 {
			return fmt.Errorf("mux %s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Error.Messages[0])
		}
		return fmt.Errorf("mux %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode mux response: %w", err)
	}
	return nil
}
