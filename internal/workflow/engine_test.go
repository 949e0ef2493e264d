package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/analysis"
	"github.com/spec-kit/grievance-service/internal/channel"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/store"
	"github.com/spec-kit/grievance-service/internal/workflow"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type providerStub struct {
	mu           sync.Mutex
	result       *analysis.Result
	analyzeErr   error
	draft        string
	draftErr     error
	analyzeCalls int

	started chan struct{}
	release chan struct{}
}

func (p *providerStub) Analyze(ctx context.Context, text string) (*analysis.Result, error) {
	p.mu.Lock()
	p.analyzeCalls++
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	result := *p.result
	return &result, nil
}

func (p *providerStub) Draft(ctx context.Context, text string, category domain.ComplaintCategory, sentiment domain.SentimentLevel, priority domain.PriorityLevel, languageTag string) (string, error) {
	if p.draftErr != nil {
		return "", p.draftErr
	}
	return p.draft, nil
}

func (p *providerStub) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analyzeCalls
}

type delivery struct {
	to, subject, body string
}

type channelStub struct {
	mu         sync.Mutex
	inbound    []channel.InboundMessage
	fetchErr   error
	deliverErr error
	deliveries []delivery
}

func (c *channelStub) FetchInbound(ctx context.Context) ([]channel.InboundMessage, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.inbound, nil
}

func (c *channelStub) Deliver(ctx context.Context, to, subject, body string) error {
	if c.deliverErr != nil {
		return c.deliverErr
	}
	c.mu.Lock()
	c.deliveries = append(c.deliveries, delivery{to: to, subject: subject, body: body})
	c.mu.Unlock()
	return nil
}

func (c *channelStub) delivered() []delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery{}, c.deliveries...)
}

func reviewedResult(requiresReview bool) *analysis.Result {
	return &analysis.Result{
		Category:        domain.CategoryDeliveryDelay,
		Sentiment:       domain.SentimentUnhappy,
		Priority:        domain.PriorityNormal,
		RequiresReview:  requiresReview,
		ConfidenceScore: 0.9,
	}
}

func newEngine(t *testing.T, provider analysis.Provider, ch channel.Channel, opts ...workflow.Option) (*workflow.Engine, *store.RecordStore, *observability.Metrics) {
	t.Helper()
	recordStore := store.NewRecordStore(nil, zap.NewNop())
	metrics := observability.NewMetrics()
	engine := workflow.NewEngine(workflow.Dependencies{
		Store:      recordStore,
		Provider:   provider,
		Channel:    ch,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	}, opts...)
	return engine, recordStore, metrics
}

func seedRecord(recordStore *store.RecordStore, id string, source domain.RecordSource, status domain.RecordStatus, timestamp time.Time) domain.ComplaintRecord {
	record := domain.ComplaintRecord{
		ID:            id,
		OriginalText:  "my parcel is two weeks late",
		Subject:       "late parcel",
		CustomerEmail: "citizen@example.com",
		Type:          domain.TypeComplaint,
		Source:        source,
		Status:        status,
		Timestamp:     timestamp,
	}
	recordStore.Upsert(record)
	return record
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s (%v)", domainErr.Code, code, err)
	}
}

func TestSubmitValidation(t *testing.T) {
	engine, _, _ := newEngine(t, &providerStub{}, &channelStub{})

	tests := []struct {
		name  string
		input workflow.SubmitInput
	}{
		{"empty text", workflow.SubmitInput{Subject: "s", Type: domain.TypeComplaint, CustomerEmail: "a@b.c"}},
		{"empty subject", workflow.SubmitInput{Text: "t", Type: domain.TypeComplaint, CustomerEmail: "a@b.c"}},
		{"empty email", workflow.SubmitInput{Text: "t", Subject: "s", Type: domain.TypeComplaint}},
		{"bad type", workflow.SubmitInput{Text: "t", Subject: "s", Type: "Rant", CustomerEmail: "a@b.c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Submit(context.Background(), tc.input)
			assertCode(t, err, "VALIDATION_FAILED")
		})
	}
}

func TestSubmitRegistersPendingPortalRecord(t *testing.T) {
	engine, recordStore, _ := newEngine(t, &providerStub{}, &channelStub{})

	record, err := engine.Submit(context.Background(), workflow.SubmitInput{
		Text:          "  my parcel is late  ",
		Subject:       "late parcel",
		Type:          domain.TypeFeedback,
		CustomerEmail: "citizen@example.com",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if record.Status != domain.StatusPending || record.Source != domain.SourcePortal {
		t.Fatalf("record = %+v, want Pending portal record", record)
	}
	if record.OriginalText != "my parcel is late" {
		t.Fatalf("text not trimmed: %q", record.OriginalText)
	}
	if !recordStore.Has(record.ID) {
		t.Fatal("submitted record not stored")
	}
}

func TestAnalyzeHighPriorityGoesToReview(t *testing.T) {
	provider := &providerStub{result: reviewedResult(true), draft: "Dear customer, we apologise."}
	gateway := &channelStub{}
	engine, recordStore, _ := newEngine(t, provider, gateway)

	submitted := time.Now().Add(-48 * time.Hour)
	seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusPending, submitted)

	updated, err := engine.Analyze(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if updated.Status != domain.StatusDrafted {
		t.Fatalf("status = %s, want DRAFTED", updated.Status)
	}
	if !updated.Timestamp.Equal(submitted) {
		t.Fatalf("submission timestamp must survive review routing: %v != %v", updated.Timestamp, submitted)
	}
	if updated.Analysis == nil || updated.Analysis.Category != domain.CategoryDeliveryDelay {
		t.Fatalf("analysis outcome missing: %+v", updated.Analysis)
	}
	if updated.FormalEmailDraft == "" {
		t.Fatal("draft missing after analysis")
	}
	if len(gateway.delivered()) != 0 {
		t.Fatal("review-routed record must not be delivered")
	}
}

func TestAnalyzePortalAutoResolves(t *testing.T) {
	provider := &providerStub{result: reviewedResult(false), draft: "Dear customer, resolved."}
	engine, recordStore, metrics := newEngine(t, provider, &channelStub{})

	submitted := time.Now().Add(-time.Hour)
	seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusPending, submitted)

	updated, err := engine.Analyze(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if updated.Status != domain.StatusAutoResolved {
		t.Fatalf("status = %s, want AUTO_RESOLVED", updated.Status)
	}
	if !updated.Timestamp.After(submitted) {
		t.Fatal("auto-resolution should refresh the timestamp")
	}
	if ok, failed := metrics.AnalysisCounts(); ok != 1 || failed != 0 {
		t.Fatalf("analysis counts = (%d,%d), want (1,0)", ok, failed)
	}
}

func TestAnalyzeExternalAutoDispatches(t *testing.T) {
	provider := &providerStub{result: reviewedResult(false), draft: "Dear customer, resolved."}
	gateway := &channelStub{}
	engine, recordStore, _ := newEngine(t, provider, gateway)

	seedRecord(recordStore, "m1", domain.SourceExternalChannel, domain.StatusPending, time.Now().Add(-time.Hour))

	updated, err := engine.Analyze(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if updated.Status != domain.StatusSent {
		t.Fatalf("status = %s, want SENT", updated.Status)
	}

	deliveries := gateway.delivered()
	if len(deliveries) != 1 {
		t.Fatalf("got %d deliveries, want exactly 1", len(deliveries))
	}
	if deliveries[0].subject != "[Auto-Response] late parcel" {
		t.Fatalf("subject = %q, want auto-response prefix", deliveries[0].subject)
	}
	if deliveries[0].to != "citizen@example.com" {
		t.Fatalf("delivered to %q", deliveries[0].to)
	}
}

func TestAnalyzeFailuresLeaveRecordUntouched(t *testing.T) {
	tests := []struct {
		name     string
		provider *providerStub
		gateway  *channelStub
		wantCode string
	}{
		{
			name:     "provider failure",
			provider: &providerStub{analyzeErr: apperrors.NewAnalysisError("provider down", errors.New("boom"))},
			gateway:  &channelStub{},
			wantCode: "ANALYSIS_FAILED",
		},
		{
			name:     "draft failure",
			provider: &providerStub{result: reviewedResult(true), draftErr: apperrors.NewGenerationError("no draft", nil)},
			gateway:  &channelStub{},
			wantCode: "GENERATION_FAILED",
		},
		{
			name:     "empty draft",
			provider: &providerStub{result: reviewedResult(true), draft: "   "},
			gateway:  &channelStub{},
			wantCode: "GENERATION_FAILED",
		},
		{
			name:     "auto-dispatch delivery failure",
			provider: &providerStub{result: reviewedResult(false), draft: "Dear customer"},
			gateway:  &channelStub{deliverErr: errors.New("smtp down")},
			wantCode: "CHANNEL_ERROR",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, recordStore, metrics := newEngine(t, tc.provider, tc.gateway)
			seeded := seedRecord(recordStore, "r1", domain.SourceExternalChannel, domain.StatusPending, time.Now().Add(-time.Hour))

			_, err := engine.Analyze(context.Background(), "r1")
			assertCode(t, err, tc.wantCode)

			got, _ := recordStore.Get("r1")
			if got.Status != domain.StatusPending {
				t.Fatalf("status = %s, failed run must not change state", got.Status)
			}
			if got.Analysis != nil || got.FormalEmailDraft != "" {
				t.Fatalf("failed run leaked partial results: %+v", got)
			}
			if !got.Timestamp.Equal(seeded.Timestamp) {
				t.Fatal("failed run must not touch the timestamp")
			}
			if ok, failed := metrics.AnalysisCounts(); ok != 0 || failed != 1 {
				t.Fatalf("analysis counts = (%d,%d), want (0,1)", ok, failed)
			}
		})
	}
}

func TestAnalyzeEligibility(t *testing.T) {
	tests := []struct {
		status   domain.RecordStatus
		wantCode string
	}{
		{domain.StatusDrafted, "CONFLICT"},
		{domain.StatusSent, "CONFLICT"},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			provider := &providerStub{result: reviewedResult(true), draft: "d"}
			engine, recordStore, _ := newEngine(t, provider, &channelStub{})
			seedRecord(recordStore, "r1", domain.SourcePortal, tc.status, time.Now())

			_, err := engine.Analyze(context.Background(), "r1")
			assertCode(t, err, tc.wantCode)
			if provider.calls() != 0 {
				t.Fatal("ineligible record must not reach the provider")
			}
		})
	}
}

func TestAnalyzeReRunAfterAutoResolve(t *testing.T) {
	provider := &providerStub{result: reviewedResult(true), draft: "Dear customer"}
	engine, recordStore, _ := newEngine(t, provider, &channelStub{})
	seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusAutoResolved, time.Now())

	updated, err := engine.Analyze(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if updated.Status != domain.StatusDrafted {
		t.Fatalf("status = %s, want DRAFTED after re-run", updated.Status)
	}
}

func TestAnalyzeMissingRecord(t *testing.T) {
	engine, _, _ := newEngine(t, &providerStub{}, &channelStub{})
	_, err := engine.Analyze(context.Background(), "nope")
	assertCode(t, err, "NOT_FOUND")
}

func TestAnalyzeSingleFlightPerRecord(t *testing.T) {
	provider := &providerStub{
		result:  reviewedResult(true),
		draft:   "Dear customer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine, recordStore, _ := newEngine(t, provider, &channelStub{})
	seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusPending, time.Now())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Analyze(context.Background(), "r1")
		done <- err
	}()
	<-provider.started

	_, err := engine.Analyze(context.Background(), "r1")
	assertCode(t, err, "ANALYSIS_IN_FLIGHT")

	close(provider.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if provider.calls() != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls())
	}
}

func TestAnalyzeStageOrder(t *testing.T) {
	var stages []workflow.Stage
	observer := func(recordID string, stage workflow.Stage) {
		stages = append(stages, stage)
	}

	provider := &providerStub{result: reviewedResult(true), draft: "Dear customer"}
	engine, recordStore, _ := newEngine(t, provider, &channelStub{}, workflow.WithStageObserver(observer))
	seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusPending, time.Now())

	if _, err := engine.Analyze(context.Background(), "r1"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := workflow.PipelineStages()
	if len(stages) != len(want) {
		t.Fatalf("observed stages %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("observed stages %v, want %v", stages, want)
		}
	}
}

func TestSyncDeduplicatesAndOrders(t *testing.T) {
	now := time.Now()
	gateway := &channelStub{inbound: []channel.InboundMessage{
		{ID: "m-new-1", CustomerEmail: "a@example.com", Subject: "lost", OriginalText: "lost parcel", Timestamp: now},
		{ID: "m-dup", CustomerEmail: "b@example.com", Subject: "dup", OriginalText: "duplicate", Timestamp: now},
		{ID: "m-new-2", CustomerEmail: "c@example.com", Subject: "damaged", OriginalText: "damaged box", Timestamp: now},
	}}
	engine, recordStore, _ := newEngine(t, &providerStub{}, gateway)
	seedRecord(recordStore, "m-dup", domain.SourceExternalChannel, domain.StatusSent, now.Add(-time.Hour))
	seedRecord(recordStore, "old", domain.SourcePortal, domain.StatusPending, now.Add(-time.Hour))

	added, err := engine.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added %d records, want 2", len(added))
	}
	if added[0].ID != "m-new-1" || added[1].ID != "m-new-2" {
		t.Fatalf("added order wrong: %s, %s", added[0].ID, added[1].ID)
	}

	history := recordStore.List()
	if history[0].ID != "m-new-1" || history[1].ID != "m-new-2" {
		t.Fatalf("history head wrong: %s, %s", history[0].ID, history[1].ID)
	}
	if got, _ := recordStore.Get("m-dup"); got.Status != domain.StatusSent {
		t.Fatal("sync must not overwrite an existing record")
	}

	merged := added[0]
	if merged.Source != domain.SourceExternalChannel || merged.Status != domain.StatusPending || merged.Type != domain.TypeComplaint {
		t.Fatalf("merged record wrong: %+v", merged)
	}

	again, err := engine.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-sync with identical feed added %d records, want 0", len(again))
	}
}

func TestSyncChannelUnreachable(t *testing.T) {
	gateway := &channelStub{fetchErr: errors.New("connection refused")}
	engine, recordStore, _ := newEngine(t, &providerStub{}, gateway)

	_, err := engine.Sync(context.Background())
	assertCode(t, err, "CHANNEL_UNREACHABLE")
	if recordStore.Len() != 0 {
		t.Fatal("failed sync must not add records")
	}
}

func TestEditDraft(t *testing.T) {
	engine, recordStore, _ := newEngine(t, &providerStub{}, &channelStub{})
	record := seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusDrafted, time.Now())
	record.FormalEmailDraft = "original draft"
	recordStore.Upsert(record)

	updated, err := engine.EditDraft(context.Background(), "r1", "edited draft")
	if err != nil {
		t.Fatalf("EditDraft: %v", err)
	}
	if updated.FormalEmailDraft != "edited draft" {
		t.Fatalf("draft = %q", updated.FormalEmailDraft)
	}
	if updated.Status != domain.StatusDrafted {
		t.Fatalf("editing must not change status, got %s", updated.Status)
	}

	_, err = engine.EditDraft(context.Background(), "r1", "  ")
	assertCode(t, err, "VALIDATION_FAILED")

	record.Status = domain.StatusSent
	recordStore.Upsert(record)
	_, err = engine.EditDraft(context.Background(), "r1", "too late")
	assertCode(t, err, "CONFLICT")
}

func TestDispatch(t *testing.T) {
	gateway := &channelStub{}
	engine, recordStore, metrics := newEngine(t, &providerStub{}, gateway)

	record := seedRecord(recordStore, "r1", domain.SourceExternalChannel, domain.StatusDrafted, time.Now().Add(-time.Hour))
	record.FormalEmailDraft = "Dear customer, reviewed reply."
	recordStore.Upsert(record)

	var dispatched *events.RecordDispatchedPayload
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventRecordDispatched, func(ctx context.Context, event events.Event) error {
		payload := event.Payload.(events.RecordDispatchedPayload)
		dispatched = &payload
		return nil
	})
	engine = workflow.NewEngine(workflow.Dependencies{
		Store:      recordStore,
		Provider:   &providerStub{},
		Channel:    gateway,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	})

	updated, err := engine.Dispatch(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if updated.Status != domain.StatusSent {
		t.Fatalf("status = %s, want SENT", updated.Status)
	}
	if !updated.Timestamp.After(record.Timestamp) {
		t.Fatal("dispatch should refresh the timestamp")
	}

	deliveries := gateway.delivered()
	if len(deliveries) != 1 || deliveries[0].subject != "late parcel" {
		t.Fatalf("deliveries = %+v, want reviewed reply under original subject", deliveries)
	}
	if metrics.DispatchCount() != 1 {
		t.Fatalf("dispatch count = %d, want 1", metrics.DispatchCount())
	}
	if dispatched == nil || !dispatched.Delivered {
		t.Fatalf("dispatched event payload = %+v", dispatched)
	}
}

func TestDispatchPortalSkipsDelivery(t *testing.T) {
	gateway := &channelStub{}
	engine, recordStore, _ := newEngine(t, &providerStub{}, gateway)
	record := seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusDrafted, time.Now())
	record.FormalEmailDraft = "Dear customer"
	recordStore.Upsert(record)

	updated, err := engine.Dispatch(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if updated.Status != domain.StatusSent {
		t.Fatalf("status = %s, want SENT", updated.Status)
	}
	if len(gateway.delivered()) != 0 {
		t.Fatal("portal records resolve in place, no outbound delivery")
	}
}

func TestDispatchRejections(t *testing.T) {
	t.Run("not drafted", func(t *testing.T) {
		engine, recordStore, _ := newEngine(t, &providerStub{}, &channelStub{})
		seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusPending, time.Now())
		_, err := engine.Dispatch(context.Background(), "r1")
		assertCode(t, err, "INVALID_TRANSITION")
	})

	t.Run("already sent", func(t *testing.T) {
		engine, recordStore, _ := newEngine(t, &providerStub{}, &channelStub{})
		seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusSent, time.Now())
		_, err := engine.Dispatch(context.Background(), "r1")
		assertCode(t, err, "INVALID_TRANSITION")
	})

	t.Run("missing draft", func(t *testing.T) {
		engine, recordStore, _ := newEngine(t, &providerStub{}, &channelStub{})
		seedRecord(recordStore, "r1", domain.SourcePortal, domain.StatusDrafted, time.Now())
		_, err := engine.Dispatch(context.Background(), "r1")
		assertCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("delivery failure keeps record drafted", func(t *testing.T) {
		gateway := &channelStub{deliverErr: errors.New("smtp down")}
		engine, recordStore, _ := newEngine(t, &providerStub{}, gateway)
		record := seedRecord(recordStore, "r1", domain.SourceExternalChannel, domain.StatusDrafted, time.Now())
		record.FormalEmailDraft = "Dear customer"
		recordStore.Upsert(record)

		_, err := engine.Dispatch(context.Background(), "r1")
		assertCode(t, err, "CHANNEL_ERROR")
		if got, _ := recordStore.Get("r1"); got.Status != domain.StatusDrafted {
			t.Fatalf("status = %s, failed delivery must keep DRAFTED", got.Status)
		}
	})
}
