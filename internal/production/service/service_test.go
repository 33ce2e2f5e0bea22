package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"

	"mfg_portal_backend/internal/production/domain"
	"mfg_portal_backend/internal/production/repository"
	"mfg_portal_backend/platform/apperr"
	platformevents "mfg_portal_backend/platform/events"
	"mfg_portal_backend/platform/logger"
)

// fakeRepo is an in-memory stage store with the same compare-and-swap
// semantics as the SQL implementation.
type fakeRepo struct {
	mu     sync.Mutex
	stages map[uuid.UUID]domain.Stage
	events []domain.QCEvent

	// forceConflicts makes every UpdateProgress fail with a version
	// conflict, to exercise the bounded retry path.
	forceConflicts bool
	updateCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stages: make(map[uuid.UUID]domain.Stage)}
}

var _ repository.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Get(_ context.Context, key repository.StageKey) (domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stages {
		if s.JobOrderID == key.JobOrderID && s.SemifinishedID == key.SemifinishedID && s.ProcessName == key.ProcessName {
			return s, nil
		}
	}
	return domain.Stage{}, domain.ErrStageNotFound()
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[id]
	if !ok {
		return domain.Stage{}, domain.ErrStageNotFound()
	}
	return s, nil
}

func (f *fakeRepo) GetAt(_ context.Context, jobOrderID uuid.UUID, semifinishedID string, position int) (domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stages {
		if s.JobOrderID == jobOrderID && s.SemifinishedID == semifinishedID && s.Position == position {
			return s, nil
		}
	}
	return domain.Stage{}, domain.ErrStageNotFound()
}

func (f *fakeRepo) ListForUnit(_ context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Stage
	for _, s := range f.stages {
		if s.JobOrderID == jobOrderID && s.SemifinishedID == semifinishedID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByProcess(_ context.Context, processName string) ([]domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Stage
	for _, s := range f.stages {
		if s.ProcessName == processName {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateStages(_ context.Context, stages []repository.NewStage) ([]domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Stage, 0, len(stages))
	for _, ns := range stages {
		s := domain.Stage{
			ID:             uuid.New(),
			JobOrderID:     ns.JobOrderID,
			SemifinishedID: ns.SemifinishedID,
			ProcessName:    ns.ProcessName,
			Position:       ns.Position,
			POQuantity:     ns.POQuantity,
			Status:         domain.StatusPending,
			Version:        1,
		}
		f.stages[s.ID] = s
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) UpdateProgress(_ context.Context, update repository.ProgressUpdate) (domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.forceConflicts {
		return domain.Stage{}, domain.ErrConflict("")
	}
	s, ok := f.stages[update.StageID]
	if !ok {
		return domain.Stage{}, domain.ErrStageNotFound()
	}
	if s.Version != update.ExpectedVersion {
		return domain.Stage{}, domain.ErrConflict(s.ProcessName)
	}
	s.AchievedQuantity = update.AchievedQuantity
	s.Status = update.Status
	if update.StartedAt != nil {
		s.StartedAt = update.StartedAt
	}
	caller := update.UpdatedBy
	s.UpdatedBy = &caller
	s.Version++
	f.stages[s.ID] = s
	return s, nil
}

func (f *fakeRepo) InsertStageEvent(_ context.Context, insert repository.StageQCInsert) (domain.QCEvent, domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[insert.StageID]
	if !ok {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrStageNotFound()
	}
	if !s.Status.AcceptsQC() {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrInvalidState(s.ProcessName, s.Status)
	}
	if insert.Rejected > s.AchievedQuantity {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrExceedsAchieved(s.ProcessName, insert.Rejected, s.AchievedQuantity)
	}

	stageID := insert.StageID
	event := domain.QCEvent{
		ID:               uuid.New(),
		StageID:          &stageID,
		RejectedQuantity: insert.Rejected,
		RecycledQuantity: insert.Recycled,
		Remarks:          insert.Remarks,
		CheckedBy:        insert.CheckedBy,
	}
	f.events = append(f.events, event)

	agg := f.sumLocked(stageID)
	s.RejectedQuantity = agg.Rejected
	s.RecycledQuantity = agg.Recycled
	s.Status = domain.StatusAfterQC(s.Status, insert.Rejected)
	checker := insert.CheckedBy
	s.QCCheckedBy = &checker
	s.Version++
	f.stages[s.ID] = s

	return event, s, nil
}

func (f *fakeRepo) InsertStandaloneEvent(_ context.Context, insert repository.StandaloneQCInsert) (domain.QCEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobOrderID := insert.JobOrderID
	semifinishedID := insert.SemifinishedID
	productCode := insert.ProductCode
	event := domain.QCEvent{
		ID:               uuid.New(),
		JobOrderID:       &jobOrderID,
		SemifinishedID:   &semifinishedID,
		ProductCode:      &productCode,
		RejectedQuantity: insert.Rejected,
		RecycledQuantity: insert.Recycled,
		Remarks:          insert.Remarks,
		CheckedBy:        insert.CheckedBy,
	}
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeRepo) ListStageEvents(_ context.Context, stageID uuid.UUID) ([]domain.QCEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QCEvent
	for _, e := range f.events {
		if e.StageID != nil && *e.StageID == stageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) RefreshAggregates(_ context.Context, stageID uuid.UUID) (repository.QCAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[stageID]
	if !ok {
		return repository.QCAggregate{}, domain.ErrStageNotFound()
	}
	agg := f.sumLocked(stageID)
	if agg.Rejected != s.RejectedQuantity || agg.Recycled != s.RecycledQuantity {
		s.RejectedQuantity = agg.Rejected
		s.RecycledQuantity = agg.Recycled
		s.Version++
		f.stages[s.ID] = s
	}
	return agg, nil
}

func (f *fakeRepo) ListStageIDsWithEvents(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, e := range f.events {
		if e.StageID == nil {
			continue
		}
		if _, ok := seen[*e.StageID]; ok {
			continue
		}
		seen[*e.StageID] = struct{}{}
		ids = append(ids, *e.StageID)
	}
	return ids, nil
}

func (f *fakeRepo) sumLocked(stageID uuid.UUID) repository.QCAggregate {
	var agg repository.QCAggregate
	for _, e := range f.events {
		if e.StageID != nil && *e.StageID == stageID {
			agg.Rejected += e.RejectedQuantity
			agg.Recycled += e.RecycledQuantity
		}
	}
	return agg
}

// fakePipelines serves a fixed pipeline for every unit it knows about.
type fakePipelines struct {
	mu    sync.Mutex
	steps map[string][]string
}

func newFakePipelines() *fakePipelines {
	return &fakePipelines{steps: make(map[string][]string)}
}

func (f *fakePipelines) set(jobOrderID uuid.UUID, semifinishedID string, steps []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[jobOrderID.String()+"/"+semifinishedID] = steps
}

func (f *fakePipelines) GetPipeline(_ context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.steps[jobOrderID.String()+"/"+semifinishedID]
	if !ok {
		return nil, apperr.NotFound("pipeline not found")
	}
	return steps, nil
}

// recordingBus captures published events synchronously so tests can assert
// on them without racing the async dispatch of the real bus.
type recordingBus struct {
	mu     sync.Mutex
	events []platformevents.Event
}

func (b *recordingBus) Publish(_ context.Context, event platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event platformevents.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

func (b *recordingBus) published() []platformevents.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platformevents.Event, len(b.events))
	copy(out, b.events)
	return out
}

type testEnv struct {
	svc        *Service
	repo       *fakeRepo
	pipelines  *fakePipelines
	bus        *recordingBus
	jobOrderID uuid.UUID
	caller     uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	pipelines := newFakePipelines()
	bus := &recordingBus{}
	resolver := NewResolver(pipelines, repo)
	svc := New(repo, resolver, bus, logger.New("development"))
	return &testEnv{
		svc:        svc,
		repo:       repo,
		pipelines:  pipelines,
		bus:        bus,
		jobOrderID: uuid.New(),
		caller:     uuid.New(),
	}
}

// instantiate sets up a unit pipeline and its stage rows in one call.
func (e *testEnv) instantiate(t *testing.T, unit string, po int64, steps ...string) {
	t.Helper()
	e.pipelines.set(e.jobOrderID, unit, steps)
	_, err := e.svc.InstantiatePipeline(context.Background(), PipelineInstantiation{
		JobOrderID:     e.jobOrderID,
		SemifinishedID: unit,
		POQuantity:     po,
		Steps:          steps,
	})
	if err != nil {
		t.Fatalf("instantiate pipeline: %v", err)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %q, got nil", code)
	}
	if got := apperr.GetCode(err); got != code {
		t.Fatalf("expected error code %q, got %q (%v)", code, got, err)
	}
}

func TestInstantiatePipelineCreatesPendingStages(t *testing.T) {
	env := newTestEnv(t)
	env.pipelines.set(env.jobOrderID, "SF-1", []string{"cutting", "welding", "painting"})

	stages, err := env.svc.InstantiatePipeline(context.Background(), PipelineInstantiation{
		JobOrderID:     env.jobOrderID,
		SemifinishedID: "SF-1",
		POQuantity:     100,
		Steps:          []string{"cutting", "welding", "painting"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(stages))
	}
	for i, s := range stages {
		if s.Status != domain.StatusPending {
			t.Fatalf("stage %d: expected Pending, got %s", i, s.Status)
		}
		if s.AchievedQuantity != 0 {
			t.Fatalf("stage %d: expected achieved 0, got %d", i, s.AchievedQuantity)
		}
		if s.Position != i {
			t.Fatalf("stage %d: expected position %d, got %d", i, i, s.Position)
		}
	}
}

func TestInstantiatePipelineRejectsDuplicateSteps(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.InstantiatePipeline(context.Background(), PipelineInstantiation{
		JobOrderID:     env.jobOrderID,
		SemifinishedID: "SF-1",
		POQuantity:     100,
		Steps:          []string{"cutting", "cutting"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate steps, got nil")
	}
}

func TestStartStage(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting", "welding")

	stage, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "cutting", env.caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.Status != domain.StatusInProgress {
		t.Fatalf("expected InProgress, got %s", stage.Status)
	}
	if stage.StartedAt == nil {
		t.Fatal("expected StartedAt to be set")
	}
	if stage.UpdatedBy == nil || *stage.UpdatedBy != env.caller {
		t.Fatal("expected UpdatedBy to record the caller")
	}
}

func TestStartStageTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	if _, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "cutting", env.caller)
	assertCode(t, err, domain.CodeInvalidTransition)
}

func TestStartStageUnknownProcess(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	_, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "galvanizing", env.caller)
	assertCode(t, err, domain.CodeInvalidProcessName)
}

func TestRecordAchievedRequiresStart(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	_, err := env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "cutting", 10, env.caller)
	assertCode(t, err, domain.CodeInvalidTransition)
}

func TestRecordAchievedNegativeDelta(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	_, err := env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "cutting", -1, env.caller)
	assertCode(t, err, domain.CodeInvalidQuantity)
}

func TestRecordAchievedZeroDeltaAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	if _, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stage, err := env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "cutting", 0, env.caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.AchievedQuantity != 0 {
		t.Fatalf("expected achieved 0, got %d", stage.AchievedQuantity)
	}
}

func TestRecordAchievedExceedsTarget(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")

	if _, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "cutting", 60, env.caller); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "cutting", 41, env.caller)
	assertCode(t, err, domain.CodeExceedsTarget)
}

func TestRecordAchievedHugeDeltaDoesNotWrap(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 60, env.caller); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// achieved + delta would overflow int64 and go negative; the ceiling
	// check must still reject it.
	_, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", math.MaxInt64, env.caller)
	assertCode(t, err, domain.CodeExceedsTarget)

	stage, err := env.svc.GetStage(ctx, env.jobOrderID, "SF-1", "cutting")
	if err != nil {
		t.Fatalf("get stage: %v", err)
	}
	if stage.AchievedQuantity != 60 {
		t.Fatalf("expected achieved unchanged at 60, got %d", stage.AchievedQuantity)
	}
}

func TestUpstreamGating(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting", "welding")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "welding", env.caller); err != nil {
		t.Fatalf("start welding failed: %v", err)
	}

	// Upstream has produced nothing yet.
	_, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "welding", 10, env.caller)
	assertCode(t, err, domain.CodeUpstreamNotReady)

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start cutting failed: %v", err)
	}
	if _, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 40, env.caller); err != nil {
		t.Fatalf("record cutting failed: %v", err)
	}

	// Welding may not overtake cutting's output.
	_, err = env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "welding", 50, env.caller)
	assertCode(t, err, domain.CodeExceedsUpstreamAvailability)

	stage, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "welding", 40, env.caller)
	if err != nil {
		t.Fatalf("record welding failed: %v", err)
	}
	if stage.AchievedQuantity != 40 {
		t.Fatalf("expected welding achieved 40, got %d", stage.AchievedQuantity)
	}

	// At parity with upstream, one more unit must be refused.
	_, err = env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "welding", 1, env.caller)
	assertCode(t, err, domain.CodeExceedsUpstreamAvailability)
}

func TestFirstStageHasNoUpstreamBound(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting", "welding")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stage, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 100, env.caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.AchievedQuantity != 100 {
		t.Fatalf("expected achieved 100, got %d", stage.AchievedQuantity)
	}
}

func TestMissingPredecessorRowTreatedAsNotStarted(t *testing.T) {
	env := newTestEnv(t)
	// Pipeline says two steps, but only the downstream stage row exists.
	env.pipelines.set(env.jobOrderID, "SF-1", []string{"cutting", "welding"})
	_, err := env.repo.CreateStages(context.Background(), []repository.NewStage{{
		JobOrderID:     env.jobOrderID,
		SemifinishedID: "SF-1",
		ProcessName:    "welding",
		Position:       1,
		POQuantity:     100,
	}})
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}

	if _, err := env.svc.StartStage(context.Background(), env.jobOrderID, "SF-1", "welding", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, err = env.svc.RecordAchieved(context.Background(), env.jobOrderID, "SF-1", "welding", 1, env.caller)
	assertCode(t, err, domain.CodeUpstreamNotReady)
}

func TestRecordAchievedPublishesProgressEvent(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 25, env.caller); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var found bool
	for _, e := range env.bus.published() {
		if e.EventName() == "production.stage.progress_recorded" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a progress event to be published")
	}
}

func TestConcurrentProgressNoLostUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Generous retry budget so every writer eventually wins its race.
	env.svc.SetRetryAttempts(100)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 1, env.caller); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent record failed: %v", err)
	}

	stage, err := env.svc.GetStage(ctx, env.jobOrderID, "SF-1", "cutting")
	if err != nil {
		t.Fatalf("get stage: %v", err)
	}
	if stage.AchievedQuantity != writers {
		t.Fatalf("lost update: expected achieved %d, got %d", writers, stage.AchievedQuantity)
	}
}

func TestBoundedRetrySurfacesConflict(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	env.repo.forceConflicts = true
	env.repo.updateCalls = 0
	env.svc.SetRetryAttempts(3)

	_, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 1, env.caller)
	assertCode(t, err, domain.CodeConflict)
	if env.repo.updateCalls != 3 {
		t.Fatalf("expected exactly 3 write attempts, got %d", env.repo.updateCalls)
	}
}

func TestPausedStageRejectsProgress(t *testing.T) {
	env := newTestEnv(t)
	env.instantiate(t, "SF-1", 100, "cutting")
	ctx := context.Background()

	if _, err := env.svc.StartStage(ctx, env.jobOrderID, "SF-1", "cutting", env.caller); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Simulate an external workflow pausing the stage.
	stage, _ := env.svc.GetStage(ctx, env.jobOrderID, "SF-1", "cutting")
	env.repo.mu.Lock()
	s := env.repo.stages[stage.ID]
	s.Status = domain.StatusPaused
	env.repo.stages[stage.ID] = s
	env.repo.mu.Unlock()

	_, err := env.svc.RecordAchieved(ctx, env.jobOrderID, "SF-1", "cutting", 1, env.caller)
	assertCode(t, err, domain.CodeInvalidTransition)
}
