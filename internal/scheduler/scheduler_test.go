package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjurecontent/backend/internal/assembler"
	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
	"github.com/conjurecontent/backend/pkg/logger"
)

type stubStore struct {
	mu      sync.Mutex
	due     []models.Job
	dueErr  error
	marked  []uuid.UUID
	markErr map[uuid.UUID]error
	ctxErr  map[uuid.UUID]error
}

func (s *stubStore) ListDue(context.Context, time.Time) ([]models.Job, error) {
	return s.due, s.dueErr
}

func (s *stubStore) MarkAssessed(_ context.Context, jobID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErr[jobID]; err != nil {
		return err
	}
	s.marked = append(s.marked, jobID)
	return nil
}

func (s *stubStore) ExecutionContext(_ context.Context, job models.Job) (*models.MediaPreset, *models.PlatformSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctxErr[job.ID]; err != nil {
		return nil, nil, err
	}
	return &models.MediaPreset{JobID: job.ID, Voice: "onyx", VoiceSpeed: 1.0},
		&models.PlatformSession{AccessToken: "token-" + job.ID.String()}, nil
}

type stubAssembler struct {
	mu       sync.Mutex
	workDir  string
	failFor  map[uuid.UUID]error
	panicFor map[uuid.UUID]bool
	calls    map[uuid.UUID]int
}

func (a *stubAssembler) Assemble(_ context.Context, job models.Job, _ models.MediaPreset) (assembler.Result, error) {
	a.mu.Lock()
	if a.calls == nil {
		a.calls = map[uuid.UUID]int{}
	}
	a.calls[job.ID]++
	a.mu.Unlock()

	if a.panicFor[job.ID] {
		panic("encoder crashed hard")
	}
	if err := a.failFor[job.ID]; err != nil {
		return assembler.Result{}, err
	}
	path := filepath.Join(a.workDir, job.ID.String()+".mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o600); err != nil {
		return assembler.Result{}, err
	}
	return assembler.Result{VideoPath: path, Title: "Title", Tags: []string{"#story"}}, nil
}

type stubUploader struct {
	mu      sync.Mutex
	err     error
	uploads []string
	titles  []string
}

func (u *stubUploader) Upload(_ context.Context, accessToken, _, title string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.uploads = append(u.uploads, accessToken)
	u.titles = append(u.titles, title)
	return nil
}

type stubLock struct {
	denied   bool
	acquires int
	releases int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return !l.denied, nil
}

func (l *stubLock) Release(context.Context) error {
	l.releases++
	return nil
}

func activeJob(runs int) models.Job {
	return models.Job{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Category:     enums.JobCategoryNarrativeStory,
		Status:       enums.JobStatusActive,
		RunsPerCycle: runs,
	}
}

func newTestService(t *testing.T, store *stubStore, asm *stubAssembler, up *stubUploader, lock *stubLock) *Service {
	t.Helper()
	asm.workDir = t.TempDir()
	svc, err := NewService(ServiceParams{
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:        store,
		Assembler:    asm,
		Uploader:     up,
		Lock:         lock,
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestRunCycleDispatchesDueJobs(t *testing.T) {
	jobA := activeJob(1)
	jobB := activeJob(1)
	store := &stubStore{due: []models.Job{jobA, jobB}}
	asm := &stubAssembler{}
	up := &stubUploader{}
	lock := &stubLock{}
	svc := newTestService(t, store, asm, up, lock)

	require.NoError(t, svc.runCycle(context.Background()))

	assert.ElementsMatch(t, []uuid.UUID{jobA.ID, jobB.ID}, store.marked)
	assert.Len(t, up.uploads, 2)
	assert.Equal(t, "Title #story", up.titles[0])
	assert.Equal(t, 1, lock.releases)
}

func TestRunCycleOneFailureDoesNotStopOthers(t *testing.T) {
	broken := activeJob(1)
	healthy := activeJob(1)
	store := &stubStore{due: []models.Job{broken, healthy}}
	asm := &stubAssembler{failFor: map[uuid.UUID]error{broken.ID: errors.New("composition failed")}}
	up := &stubUploader{}
	svc := newTestService(t, store, asm, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))

	require.Len(t, up.uploads, 1)
	assert.Equal(t, "token-"+healthy.ID.String(), up.uploads[0])
	// The failed job was still marked: it waits for the next day, not the
	// next poll.
	assert.ElementsMatch(t, []uuid.UUID{broken.ID, healthy.ID}, store.marked)
}

func TestRunCyclePanicIsolated(t *testing.T) {
	panicky := activeJob(1)
	healthy := activeJob(1)
	store := &stubStore{due: []models.Job{panicky, healthy}}
	asm := &stubAssembler{panicFor: map[uuid.UUID]bool{panicky.ID: true}}
	up := &stubUploader{}
	svc := newTestService(t, store, asm, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Len(t, up.uploads, 1)
}

func TestRunCycleHonorsRunsPerCycle(t *testing.T) {
	job := activeJob(3)
	store := &stubStore{due: []models.Job{job}}
	asm := &stubAssembler{}
	up := &stubUploader{}
	svc := newTestService(t, store, asm, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))

	assert.Equal(t, 3, asm.calls[job.ID])
	assert.Len(t, up.uploads, 3)
	// One mark per cycle regardless of repetitions.
	assert.Equal(t, []uuid.UUID{job.ID}, store.marked)
}

func TestRunCycleSkipsWhenLockDenied(t *testing.T) {
	store := &stubStore{due: []models.Job{activeJob(1)}}
	up := &stubUploader{}
	lock := &stubLock{denied: true}
	svc := newTestService(t, store, &stubAssembler{}, up, lock)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Empty(t, up.uploads)
	assert.Empty(t, store.marked)
	assert.Zero(t, lock.releases)
}

func TestRunCycleEmptyDueSet(t *testing.T) {
	store := &stubStore{}
	up := &stubUploader{}
	svc := newTestService(t, store, &stubAssembler{}, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Empty(t, up.uploads)
}

func TestRunCycleSkipsJobWhenMarkFails(t *testing.T) {
	job := activeJob(1)
	store := &stubStore{
		due:     []models.Job{job},
		markErr: map[uuid.UUID]error{job.ID: errors.New("db down")},
	}
	up := &stubUploader{}
	svc := newTestService(t, store, &stubAssembler{}, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Empty(t, up.uploads)
}

func TestRunCycleContextUnavailable(t *testing.T) {
	job := activeJob(1)
	store := &stubStore{
		due:    []models.Job{job},
		ctxErr: map[uuid.UUID]error{job.ID: errors.New("session unlinked")},
	}
	asm := &stubAssembler{}
	up := &stubUploader{}
	svc := newTestService(t, store, asm, up, &stubLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Empty(t, up.uploads)
	assert.Zero(t, asm.calls[job.ID])
}
