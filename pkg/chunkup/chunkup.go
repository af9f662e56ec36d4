// Package chunkup pushes a local file to a pre-authorized direct-upload
// endpoint in fixed-size chunks, the way the video host's resumable upload
// protocol expects: sequential PUTs with a Content-Range header, where 308
// acknowledges an intermediate chunk and a 2xx acknowledges the final one.
package chunkup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultChunkSize is 5 MiB, matching the upload endpoint's recommended
// chunking.
const DefaultChunkSize int64 = 5 << 20

// ErrCancelled is reported by Wait after a caller-initiated Cancel.
var ErrCancelled = errors.New("chunkup: upload cancelled")

type Options struct {
	// ChunkSize in bytes. Defaults to DefaultChunkSize.
	ChunkSize int64
	// Client used for chunk PUTs. Defaults to a client with a 2 minute
	// per-chunk timeout.
	Client *http.Client
	// Retries is the number of extra attempts per chunk after a failure.
	// Zero by default: the endpoint's own resumability contract is the
	// recovery mechanism, retrying here is opt-in.
	Retries int

	// OnProgress receives a monotonically non-decreasing percentage in
	// [0, 100] as chunks are acknowledged.
	OnProgress func(percent float64)
	// OnSuccess fires exactly once, after the final chunk is acknowledged.
	OnSuccess func()
	// OnError fires at most once; the upload is terminal afterwards.
	OnError func(err error)
}

// Upload is the owned handle for one in-flight transfer. It is returned by
// Start and passed nowhere implicitly; a caller holding the handle is the
// only party able to cancel or await it.
type Upload struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	sent      int64
	total     int64
	err       error
	cancelled bool
}

// Start begins transmitting size bytes from src to endpoint and returns
// immediately with the upload handle. Transfer runs on its own goroutine;
// completion is observed through the callbacks or Wait.
func Start(ctx context.Context, endpoint string, src io.ReaderAt, size int64, opts Options) (*Upload, error) {
	if endpoint == "" {
		return nil, errors.New("chunkup: endpoint is required")
	}
	if size < 0 {
		return nil, errors.New("chunkup: negative size")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 2 * time.Minute}
	}

	ctx, cancel := context.WithCancel(ctx)
	u := &Upload{
		cancel: cancel,
		done:   make(chan struct{}),
		total:  size,
	}

	go u.run(ctx, endpoint, src, size, opts)
	return u, nil
}

// Cancel aborts the in-flight chunk and stops the transfer. It is
// best-effort: the handle becomes terminal locally regardless of whether a
// chunk was mid-air, and neither OnSuccess nor OnError fires afterwards.
func (u *Upload) Cancel() {
	u.mu.Lock()
	if u.terminalLocked() {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	u.err = ErrCancelled
	u.mu.Unlock()
	u.cancel()
}

// Wait blocks until the transfer is terminal and returns nil on success,
// ErrCancelled after Cancel, or the transmit error otherwise.
func (u *Upload) Wait() error {
	<-u.done
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Progress reports the acknowledged percentage so far.
func (u *Upload) Progress() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.total == 0 {
		return 100
	}
	return float64(u.sent) * 100 / float64(u.total)
}

func (u *Upload) terminalLocked() bool {
	return u.cancelled || u.err != nil || (u.total > 0 && u.sent == u.total)
}

func (u *Upload) run(ctx context.Context, endpoint string, src io.ReaderAt, size int64, opts Options) {
	defer close(u.done)
	defer u.cancel()

	var sent int64
	for sent < size {
		n := opts.ChunkSize
		if remaining := size - sent; remaining < n {
			n = remaining
		}

		last := sent+n == size
		if err := sendChunk(ctx, opts, endpoint, src, sent, n, size, last); err != nil {
			u.fail(opts, err)
			return
		}

		sent += n
		u.mu.Lock()
		u.sent = sent
		cancelled := u.cancelled
		u.mu.Unlock()
		if cancelled {
			return
		}
		if opts.OnProgress != nil {
			opts.OnProgress(float64(sent) * 100 / float64(size))
		}
	}

	if size == 0 && opts.OnProgress != nil {
		opts.OnProgress(100)
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess()
	}
}

func (u *Upload) fail(opts Options, err error) {
	u.mu.Lock()
	if u.cancelled {
		// Cancellation already made the handle terminal; the transport
		// error is just the aborted chunk surfacing.
		u.mu.Unlock()
		return
	}
	u.err = err
	u.mu.Unlock()
	if opts.OnError != nil {
		opts.OnError(err)
	}
}

func sendChunk(ctx context.Context, opts Options, endpoint string, src io.ReaderAt, off, n, total int64, last bool) error {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		lastErr = putChunk(ctx, opts.Client, endpoint, src, off, n, total, last)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func putChunk(ctx context.Context, client *http.Client, endpoint string, src io.ReaderAt, off, n, total int64, last bool) error {
	body := io.NewSectionReader(src, off, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return fmt.Errorf("chunkup: build chunk request: %w", err)
	}
	req.ContentLength = n
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", off, off+n-1, total))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("chunkup: chunk %d-%d: %w", off, off+n-1, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusPermanentRedirect && !last:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("chunkup: chunk %d-%d rejected with status %d", off, off+n-1, resp.StatusCode)
	}
}
