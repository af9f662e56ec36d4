package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/internal/domain/workflow"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// Fakes

type fakeHost struct {
	mu sync.Mutex

	uploads      []*service.UploadStatus
	uploadErr    error
	assets       []*service.Asset
	assetErr     error
	signErr      error
	masterNudges int
	uploadCalls  int
	assetCalls   int
}

func (f *fakeHost) CreateDirectUpload(ctx context.Context) (*service.DirectUpload, error) {
	return &service.DirectUpload{ID: "up_1", URL: "https://host.example/upload"}, nil
}

func (f *fakeHost) GetUpload(ctx context.Context, uploadID string) (*service.UploadStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploadCalls++
	idx := f.uploadCalls - 1
	if idx >= len(f.uploads) {
		idx = len(f.uploads) - 1
	}
	return f.uploads[idx], nil
}

func (f *fakeHost) GetAsset(ctx context.Context, assetID string) (*service.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	f.assetCalls++
	idx := f.assetCalls - 1
	if idx >= len(f.assets) {
		idx = len(f.assets) - 1
	}
	return f.assets[idx], nil
}

func (f *fakeHost) EnableMasterAccess(ctx context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.masterNudges++
	return nil
}

func (f *fakeHost) SignPlaybackToken(playbackID string, kind service.PlaybackTokenKind, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "signed-token", nil
}

func (f *fakeHost) nudges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.masterNudges
}

type fakeTranscriber struct {
	transcript string
	err        error
	gotURL     string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaURL string) (string, error) {
	f.gotURL = mediaURL
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	results map[service.FieldKind]string
	errs    map[service.FieldKind]error
}

func (f *fakeGenerator) Generate(ctx context.Context, transcript string, kind service.FieldKind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[kind]; err != nil {
		return "", err
	}
	return f.results[kind], nil
}

type fakeMediaRepo struct {
	mu        sync.Mutex
	saveErr   error
	updateErr error
	saved     []*media.Item
	updated   []*media.Item
}

func (f *fakeMediaRepo) Save(ctx context.Context, item *media.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *item
	f.saved = append(f.saved, &copied)
	return nil
}

func (f *fakeMediaRepo) Update(ctx context.Context, item *media.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	copied := *item
	f.updated = append(f.updated, &copied)
	return nil
}

func (f *fakeMediaRepo) lastUpdated() *media.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updated) == 0 {
		return nil
	}
	return f.updated[len(f.updated)-1]
}

func (f *fakeMediaRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	return nil
}

func (f *fakeMediaRepo) FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*media.Item, error) {
	return nil, apperror.NewNotFound("media", id.String())
}

func (f *fakeMediaRepo) FindByAssetID(ctx context.Context, assetID string) (*media.Item, error) {
	return nil, apperror.NewNotFound("media", assetID)
}

func (f *fakeMediaRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*media.Item, error) {
	return nil, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []workflow.Event
}

func (r *recordingEmitter) Emit(e workflow.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) all() []workflow.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]workflow.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingEmitter) lines() []string {
	events := r.all()
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.EncodeLine()
	}
	return lines
}

func (r *recordingEmitter) steps() []int {
	var steps []int
	for _, e := range r.all() {
		if e.Kind == workflow.KindStep {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

func (r *recordingEmitter) hasError() bool {
	for _, e := range r.all() {
		if e.Kind == workflow.KindError {
			return true
		}
	}
	return false
}

// Builders

func readyAsset() *service.Asset {
	return &service.Asset{
		ID:              "asset_1",
		Status:          service.AssetStatusReady,
		DurationSeconds: 300,
		PlaybackIDs:     []string{"pb_1"},
		MasterStatus:    service.MasterStatusReady,
		MasterURL:       "https://host.example/master.mp4",
	}
}

func happyDeps() (*fakeHost, *fakeTranscriber, *fakeGenerator, *fakeMediaRepo) {
	host := &fakeHost{
		uploads: []*service.UploadStatus{{ID: "up_1", AssetID: "asset_1", Status: "asset_created"}},
		assets:  []*service.Asset{readyAsset()},
	}
	transcriber := &fakeTranscriber{transcript: "hablamos de ganadería"}
	generator := &fakeGenerator{results: map[service.FieldKind]string{
		service.FieldTitle:       "Manejo del ganado",
		service.FieldDescription: "Una descripción",
		service.FieldSummary:     "Un resumen",
	}}
	repo := &fakeMediaRepo{}
	return host, transcriber, generator, repo
}

func newUseCase(host service.VideoHost, tr service.Transcriber, gen service.Generator, repo media.Repository) *ProcessUploadUseCase {
	cfg := Config{PollInterval: time.Millisecond, UploadAttempts: 5, ReadyAttempts: 5}
	return NewProcessUploadUseCase(host, tr, gen, repo, nil, cfg, logger.NewNop())
}

func run(t *testing.T, uc *ProcessUploadUseCase) (*ProcessUploadOutput, *recordingEmitter, error) {
	t.Helper()
	emitter := &recordingEmitter{}
	out, err := uc.Execute(context.Background(), ProcessUploadInput{
		UploadID: "up_1",
		Filename: "charla-ganaderia.mp4",
		OwnerID:  uuid.New(),
	}, emitter)
	return out, emitter, err
}

// Tests

func TestExecute_HappyPath(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, []int{1, 2, 3, 4}, emitter.steps())
	assert.False(t, emitter.hasError())
	lines := emitter.lines()
	assert.Contains(t, lines, "SUCCESS:Processing complete!")
	assert.Contains(t, lines, "SUCCESS:Transcription complete.")

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, out.MediaID, saved.ID)
	assert.Equal(t, "asset_1", saved.AssetID)
	require.NotNil(t, saved.PlaybackID)
	assert.Equal(t, "pb_1", *saved.PlaybackID)
	assert.Equal(t, media.StatusProcessing, saved.Status)
	assert.Equal(t, float64(5), saved.DurationMinutes)

	assert.Equal(t, "https://host.example/master.mp4", transcriber.gotURL)

	// transcript save followed by the metadata save
	require.Len(t, repo.updated, 2)
	final := repo.lastUpdated()
	assert.Equal(t, "Manejo del ganado", final.Title)
	assert.Equal(t, "Una descripción", final.Description)
	assert.Equal(t, "Un resumen", final.Summary)
	assert.Equal(t, "hablamos de ganadería", final.Transcript)
	assert.Equal(t, media.StatusReady, final.Status)
}

func TestExecute_StepsNeverDecrease(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	uc := newUseCase(host, transcriber, generator, repo)

	_, emitter, _ := run(t, uc)

	steps := emitter.steps()
	require.NotEmpty(t, steps)
	for i := 1; i < len(steps); i++ {
		assert.GreaterOrEqual(t, steps[i], steps[i-1])
	}
}

func TestExecute_MissingUploadID(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	uc := newUseCase(host, transcriber, generator, repo)

	emitter := &recordingEmitter{}
	out, err := uc.Execute(context.Background(), ProcessUploadInput{OwnerID: uuid.New()}, emitter)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.True(t, emitter.hasError())
}

func TestExecute_AssetIDResolutionTimesOut(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	host.uploads = []*service.UploadStatus{{ID: "up_1", Status: "waiting"}}
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperror.ErrTimeout)
	assert.True(t, emitter.hasError())
	// Nothing downstream ran.
	assert.Empty(t, repo.saved)
	assert.Equal(t, []int{1}, emitter.steps())
}

func TestExecute_AssetErroredIsFatal(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	host.assets = []*service.Asset{{ID: "asset_1", Status: service.AssetStatusErrored}}
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.True(t, emitter.hasError())
	assert.Empty(t, repo.saved)
	assert.NotContains(t, emitter.steps(), 2)
}

func TestExecute_ReadyTimeoutIsSoft(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	// Transcoded but the master export never finishes; the pipeline warns
	// and pushes on with the last observed asset.
	stuck := readyAsset()
	stuck.MasterStatus = service.MasterStatusPreparing
	host.assets = []*service.Asset{stuck}
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	require.NoError(t, err)
	require.NotNil(t, out)
	lines := strings.Join(emitter.lines(), "\n")
	assert.Contains(t, lines, "Warning: the master file is not ready yet")
	assert.Equal(t, []int{1, 2, 3, 4}, emitter.steps())
}

func TestExecute_MasterAccessNudgedOnce(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	idle := readyAsset()
	idle.MasterStatus = ""
	idle.MasterURL = ""
	ready := readyAsset()
	host.assets = []*service.Asset{idle, idle, ready}
	uc := newUseCase(host, transcriber, generator, repo)

	_, _, err := run(t, uc)

	require.NoError(t, err)
	assert.Equal(t, 1, host.nudges())
}

func TestExecute_TranscriptionFailureIsFatal(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	transcriber.err = errors.New("sidecar unreachable")
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	lines := strings.Join(emitter.lines(), "\n")
	assert.Contains(t, lines, "ERROR:Transcription failed")
	// The record was created before the failure and flipped to errored.
	require.Len(t, repo.saved, 1)
	final := repo.lastUpdated()
	require.NotNil(t, final)
	assert.Equal(t, media.StatusErrored, final.Status)
	assert.NotContains(t, emitter.steps(), 4)
}

func TestExecute_SingleFieldFailureKeepsFallback(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	generator.errs = map[service.FieldKind]error{
		service.FieldTitle: errors.New("model overloaded"),
	}
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	require.NoError(t, err)
	require.NotNil(t, out)
	// A field-local failure is a warning, never an ERROR line; the run
	// still completes.
	assert.False(t, emitter.hasError())
	lines := strings.Join(emitter.lines(), "\n")
	assert.Contains(t, lines, "Warning: title generation failed")
	assert.Contains(t, lines, "SUCCESS:Processing complete!")

	// Title falls back to the filename-derived default while the other
	// fields keep their generated values.
	final := repo.lastUpdated()
	require.NotNil(t, final)
	assert.Equal(t, "charla-ganaderia", final.Title)
	assert.Equal(t, "Una descripción", final.Description)
	assert.Equal(t, "Un resumen", final.Summary)
}

func TestExecute_AllFieldsFailStillCompletes(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	generator.errs = map[service.FieldKind]error{
		service.FieldTitle:       errors.New("down"),
		service.FieldDescription: errors.New("down"),
		service.FieldSummary:     errors.New("down"),
	}
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, []int{1, 2, 3, 4}, emitter.steps())
	assert.False(t, emitter.hasError())
}

func TestExecute_PersistenceFailureWarnsAndContinues(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	repo.saveErr = errors.New("db down")
	uc := newUseCase(host, transcriber, generator, repo)

	out, emitter, err := run(t, uc)

	require.NoError(t, err)
	require.NotNil(t, out)
	lines := strings.Join(emitter.lines(), "\n")
	assert.Contains(t, lines, "Warning: could not save")
	assert.Contains(t, lines, "SUCCESS:Processing complete!")
	assert.False(t, emitter.hasError())
	// No updates are attempted against a record that was never created.
	assert.Empty(t, repo.updated)
}

func TestExecute_CancelledContext(t *testing.T) {
	host, transcriber, generator, repo := happyDeps()
	host.uploads = []*service.UploadStatus{{ID: "up_1", Status: "waiting"}}
	uc := newUseCase(host, transcriber, generator, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emitter := &recordingEmitter{}
	out, err := uc.Execute(ctx, ProcessUploadInput{UploadID: "up_1", OwnerID: uuid.New()}, emitter)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	lines := strings.Join(emitter.lines(), "\n")
	assert.Contains(t, lines, "Processing cancelled.")
	assert.False(t, emitter.hasError())
}
