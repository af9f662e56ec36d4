package service

import "context"

// Transcriber turns a downloadable media URL into transcript text. The call
// is synchronous from the caller's point of view but can take minutes.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (string, error)
}
