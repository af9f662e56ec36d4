package chunkup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkRecord struct {
	contentRange string
	size         int64
}

// chunkServer acknowledges intermediate chunks with 308 and the final one
// with 200, recording every PUT it sees.
type chunkServer struct {
	mu     sync.Mutex
	total  int64
	seen   []chunkRecord
	reject func(index int) int
}

func (s *chunkServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		index := len(s.seen)
		s.seen = append(s.seen, chunkRecord{
			contentRange: r.Header.Get("Content-Range"),
			size:         int64(len(body)),
		})
		received := int64(0)
		for _, c := range s.seen {
			received += c.size
		}
		reject := 0
		if s.reject != nil {
			reject = s.reject(index)
		}
		s.mu.Unlock()

		if reject != 0 {
			w.WriteHeader(reject)
			return
		}
		if received < s.total {
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *chunkServer) records() []chunkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chunkRecord, len(s.seen))
	copy(out, s.seen)
	return out
}

func TestStart_SplitsIntoChunks(t *testing.T) {
	// 12 units of data with 5-unit chunks must go out as 5, 5, 2.
	data := bytes.Repeat([]byte("a"), 12)
	srv := &chunkServer{total: int64(len(data))}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	var progress []float64
	var progressMu sync.Mutex
	successFired := false

	up, err := Start(context.Background(), ts.URL, bytes.NewReader(data), int64(len(data)), Options{
		ChunkSize: 5,
		OnProgress: func(p float64) {
			progressMu.Lock()
			progress = append(progress, p)
			progressMu.Unlock()
		},
		OnSuccess: func() { successFired = true },
	})
	require.NoError(t, err)
	require.NoError(t, up.Wait())

	records := srv.records()
	require.Len(t, records, 3)
	assert.Equal(t, "bytes 0-4/12", records[0].contentRange)
	assert.Equal(t, "bytes 5-9/12", records[1].contentRange)
	assert.Equal(t, "bytes 10-11/12", records[2].contentRange)
	assert.Equal(t, int64(5), records[0].size)
	assert.Equal(t, int64(5), records[1].size)
	assert.Equal(t, int64(2), records[2].size)

	progressMu.Lock()
	defer progressMu.Unlock()
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, float64(100), progress[len(progress)-1])
	assert.True(t, successFired)
	assert.Equal(t, float64(100), up.Progress())
}

func TestStart_SingleChunkWhenSmall(t *testing.T) {
	data := []byte("tiny")
	srv := &chunkServer{total: int64(len(data))}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	up, err := Start(context.Background(), ts.URL, bytes.NewReader(data), int64(len(data)), Options{ChunkSize: 1024})
	require.NoError(t, err)
	require.NoError(t, up.Wait())

	records := srv.records()
	require.Len(t, records, 1)
	assert.Equal(t, fmt.Sprintf("bytes 0-%d/%d", len(data)-1, len(data)), records[0].contentRange)
}

func TestStart_ReportsServerRejection(t *testing.T) {
	data := bytes.Repeat([]byte("b"), 10)
	srv := &chunkServer{
		total: int64(len(data)),
		reject: func(index int) int {
			if index == 1 {
				return http.StatusInternalServerError
			}
			return 0
		},
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	var gotErr error
	errFired := make(chan struct{})

	up, err := Start(context.Background(), ts.URL, bytes.NewReader(data), int64(len(data)), Options{
		ChunkSize: 5,
		OnError: func(err error) {
			gotErr = err
			close(errFired)
		},
	})
	require.NoError(t, err)

	waitErr := up.Wait()
	require.Error(t, waitErr)
	assert.Contains(t, waitErr.Error(), "status 500")

	select {
	case <-errFired:
		assert.Equal(t, waitErr, gotErr)
	case <-time.After(time.Second):
		t.Fatal("OnError callback never fired")
	}
}

func TestStart_RetriesFailedChunk(t *testing.T) {
	data := bytes.Repeat([]byte("c"), 6)
	var rejected bool
	var mu sync.Mutex
	srv := &chunkServer{
		total: int64(len(data)),
		reject: func(index int) int {
			mu.Lock()
			defer mu.Unlock()
			if !rejected {
				rejected = true
				return http.StatusServiceUnavailable
			}
			return 0
		},
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	up, err := Start(context.Background(), ts.URL, bytes.NewReader(data), int64(len(data)), Options{
		ChunkSize: 6,
		Retries:   1,
	})
	require.NoError(t, err)
	assert.NoError(t, up.Wait())
}

func TestCancel_StopsUploadAndSuppressesCallbacks(t *testing.T) {
	data := bytes.Repeat([]byte("d"), 20)
	release := make(chan struct{})
	firstChunk := make(chan struct{})
	var once sync.Once

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(firstChunk) })
		<-release
		w.WriteHeader(http.StatusPermanentRedirect)
	}))
	defer ts.Close()
	defer close(release)

	callbackFired := false
	up, err := Start(context.Background(), ts.URL, bytes.NewReader(data), int64(len(data)), Options{
		ChunkSize: 5,
		OnSuccess: func() { callbackFired = true },
		OnError:   func(error) { callbackFired = true },
	})
	require.NoError(t, err)

	<-firstChunk
	up.Cancel()

	assert.ErrorIs(t, up.Wait(), ErrCancelled)
	assert.False(t, callbackFired)

	// Cancelling a terminal handle is a no-op.
	up.Cancel()
	assert.ErrorIs(t, up.Wait(), ErrCancelled)
}

func TestStart_EmptyEndpoint(t *testing.T) {
	_, err := Start(context.Background(), "", bytes.NewReader(nil), 0, Options{})
	assert.Error(t, err)
}

func TestStart_ZeroSize(t *testing.T) {
	var progress []float64
	successFired := false

	up, err := Start(context.Background(), "http://127.0.0.1:1/unused", bytes.NewReader(nil), 0, Options{
		OnProgress: func(p float64) { progress = append(progress, p) },
		OnSuccess:  func() { successFired = true },
	})
	require.NoError(t, err)
	require.NoError(t, up.Wait())

	// Nothing to send: complete immediately without touching the network.
	assert.Equal(t, []float64{100}, progress)
	assert.True(t, successFired)
	assert.Equal(t, float64(100), up.Progress())
}
