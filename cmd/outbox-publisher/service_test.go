package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/pkg/config"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
	"github.com/angelmondragon/condo-backend/pkg/enums"
	"github.com/angelmondragon/condo-backend/pkg/logger"
	"github.com/angelmondragon/condo-backend/pkg/outbox"
	"github.com/angelmondragon/condo-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/condo-backend/pkg/outbox/registry"
)

func unitEvent(t *testing.T, eventType enums.OutboxEventType, eventID string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateUnit,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		CreatedAt:     time.Now(),
	}
}

func unitResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "condo-unit-events",
			AggregateType: enums.AggregateUnit,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.UnitCreatedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			unitEvent(t, enums.EventUnitCreated, "event-one"),
			unitEvent(t, enums.EventUnitMemberAdded, "event-two"),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	metrics := &fakeMetrics{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: unitResolved()}, &fakeDLQRepo{}, nil)
	service.metrics = metrics

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if metrics.published != 1 || metrics.failed != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestServiceProcessBatchPublishesBeforeWaiting(t *testing.T) {
	var trace []string
	repo := &fakeRepo{events: []models.OutboxEvent{
		unitEvent(t, enums.EventUnitCreated, "a"),
		unitEvent(t, enums.EventUnitUpdated, "b"),
	}}
	pub := &fakePublisher{trace: &trace, results: []publishResult{
		fakePublishResult{trace: &trace, name: "get-1"},
		fakePublishResult{trace: &trace, name: "get-2"},
	}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: unitResolved()}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	want := []string{"publish", "publish", "get-1", "get-2"}
	if len(trace) != len(want) {
		t.Fatalf("unexpected trace %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("unexpected trace %v", trace)
		}
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected both rows published, got %d", len(repo.published))
	}
}

func TestNewMessageSetsAttributes(t *testing.T) {
	event := unitEvent(t, enums.EventUnitDeleted, "deleted")
	resolved := unitResolved()
	resolved.Envelope.EventID = "evt-1"

	msg := newMessage(event, resolved)
	attrs := msg.Attributes
	if attrs["event_type"] != "unit_deleted" || attrs["aggregate_type"] != "unit" || attrs["event_id"] != "evt-1" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if attrs["event_scope"] != "unit" {
		t.Fatalf("unexpected scope %q", attrs["event_scope"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate id %s", attrs["aggregate_id"])
	}
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatalf("payload must be published verbatim")
	}
	if scope := newMessage(unitEvent(t, enums.EventUnitMemberAdded, "m"), resolved).Attributes["event_scope"]; scope != "membership" {
		t.Fatalf("expected membership scope, got %q", scope)
	}
}

func TestSendWithoutPublisherIsNonRetryable(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{resolved: unitResolved()}, &fakeDLQRepo{}, nil)
	service.publisherFactory = func(string) publisher { return nil }

	d := service.send(context.Background(), unitEvent(t, enums.EventUnitCreated, "x"))
	var nonRetry registry.NonRetryableError
	if !errors.As(d.err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", d.err)
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := unitEvent(t, enums.EventUnitUpdated, "nonretryable")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	eventRegistry := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	metrics := &fakeMetrics{}
	service := newTestService(t, repo, &fakePublisher{}, eventRegistry, dlqRepo, nil)
	service.metrics = metrics
	failedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return failedAt }

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if !entry.FailedAt.Equal(failedAt) {
		t.Fatalf("unexpected failed_at %s", entry.FailedAt)
	}
	if metrics.dlq != 1 {
		t.Fatalf("expected dlq metric, got %d", metrics.dlq)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := unitEvent(t, enums.EventUnitMemberRemoved, "max-attempts")
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
		},
	}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: unitResolved()}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %d", len(repo.terminal))
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestReportPendingSetsGauge(t *testing.T) {
	metrics := &fakeMetrics{}
	service := newTestService(t, &fakeRepo{pending: 7}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	service.metrics = metrics
	service.reportPending(context.Background())
	if metrics.pending != 7 {
		t.Fatalf("expected pending 7, got %d", metrics.pending)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunFailsWithoutTopicPublisher(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{resolved: unitResolved()}, &fakeDLQRepo{}, nil)
	err := service.Run(context.Background())
	if err == nil || err.Error() != "no publisher for topic condo-unit-events" {
		t.Fatalf("expected missing publisher error, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing config")
	}
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: &fakeRepo{},
		Registry:   &fakeRegistry{},
	})
	if err == nil {
		t.Fatalf("expected error for missing dlq repository")
	}
}

func TestWithJitterStaysInWindow(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := withJitter(time.Second)
		if got < time.Second || got >= time.Second+jitterWindow {
			t.Fatalf("jitter out of range: %s", got)
		}
	}
	if withJitter(0) != 0 {
		t.Fatalf("zero duration must stay zero")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(time.Second, time.Second, 3*time.Second); got != 2*time.Second {
		t.Fatalf("expected doubling, got %s", got)
	}
	if got := nextBackoff(2*time.Second, time.Second, 3*time.Second); got != 3*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, registry registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logg,
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         registry,
		PublisherFactory: func(_ string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	pending   int64
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

func (f *fakeRepo) CountPending(ctx context.Context) (int64, error) {
	return f.pending, nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
	trace    *[]string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if f.trace != nil {
		*f.trace = append(*f.trace, "publish")
	}
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err   error
	trace *[]string
	name  string
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.trace != nil {
		*f.trace = append(*f.trace, f.name)
	}
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

func (f *fakeRegistry) Topics() []string {
	if f.resolved == nil {
		return nil
	}
	return []string{f.resolved.Descriptor.Topic}
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeMetrics struct {
	published int
	failed    int
	dlq       int
	pending   int64
}

func (f *fakeMetrics) IncPublished(string)   { f.published++ }
func (f *fakeMetrics) IncFailed(string)      { f.failed++ }
func (f *fakeMetrics) IncDLQ(string, string) { f.dlq++ }
func (f *fakeMetrics) SetPending(n int64)    { f.pending = n }
