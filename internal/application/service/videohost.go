package service

import (
	"context"
	"time"
)

// Remote asset lifecycle states as reported by the video host. The host is
// eventually consistent: an asset can sit in a non-terminal state for an
// unbounded time, callers bound their own waits.
const (
	AssetStatusPreparing = "preparing"
	AssetStatusReady     = "ready"
	AssetStatusErrored   = "errored"

	MasterStatusPreparing = "preparing"
	MasterStatusReady     = "ready"
	MasterStatusErrored   = "errored"
)

// DirectUpload is a pre-authorized upload endpoint. The browser pushes file
// chunks straight to URL; the server only ever sees the ID.
type DirectUpload struct {
	ID  string
	URL string
}

type UploadStatus struct {
	ID      string
	AssetID string
	Status  string
}

type Asset struct {
	ID              string
	Status          string
	DurationSeconds float64
	PlaybackIDs     []string
	MasterStatus    string
	MasterURL       string
	CreatedAt       time.Time
}

// FullyReady reports whether both transcoding and the master-file export
// have reached their ready states, which is what the transcription step
// needs before it can download the source media.
func (a *Asset) FullyReady() bool {
	return a.Status == AssetStatusReady && a.MasterStatus == MasterStatusReady
}

func (a *Asset) FirstPlaybackID() string {
	if len(a.PlaybackIDs) == 0 {
		return ""
	}
	return a.PlaybackIDs[0]
}

type PlaybackTokenKind string

const (
	PlaybackTokenVideo      PlaybackTokenKind = "v"
	PlaybackTokenThumbnail  PlaybackTokenKind = "t"
	PlaybackTokenGIF        PlaybackTokenKind = "g"
	PlaybackTokenStoryboard PlaybackTokenKind = "s"
)

// VideoHost is the hosting provider's API surface the pipeline depends on.
type VideoHost interface {
	CreateDirectUpload(ctx context.Context) (*DirectUpload, error)
	GetUpload(ctx context.Context, uploadID string) (*UploadStatus, error)
	GetAsset(ctx context.Context, assetID string) (*Asset, error)
	// EnableMasterAccess asks the host to export the original file. It is
	// an idempotent nudge: repeating it while the export is preparing is
	// harmless.
	EnableMasterAccess(ctx context.Context, assetID string) error
	SignPlaybackToken(playbackID string, kind PlaybackTokenKind, ttl time.Duration) (string, error)
}
