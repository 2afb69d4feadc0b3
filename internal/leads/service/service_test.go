package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/events"
	"lead_routing_backend/internal/leads/repository"
	"lead_routing_backend/internal/leads/transport"
	"lead_routing_backend/platform/apperr"
	"lead_routing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intakeNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type fakeLeadStore struct {
	created []repository.CreateLeadParams
	scored  []repository.SaveScoreParams
	leads   map[uuid.UUID]domain.Lead
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: map[uuid.UUID]domain.Lead{}}
}

func (f *fakeLeadStore) Create(_ context.Context, p repository.CreateLeadParams) (uuid.UUID, error) {
	id := uuid.New()
	f.created = append(f.created, p)
	f.leads[id] = domain.Lead{ID: id, Email: p.Email, EventType: p.EventType, RoutingState: domain.StateScoring}
	return id, nil
}

func (f *fakeLeadStore) SaveScore(_ context.Context, p repository.SaveScoreParams) error {
	lead, ok := f.leads[p.LeadID]
	if !ok || lead.RoutingState != domain.StateScoring {
		return repository.ErrNotFound
	}
	f.scored = append(f.scored, p)
	lead.LeadScore = &p.Score
	lead.ScoringComponents = p.Components
	lead.RoutingState = domain.StateRouting
	f.leads[p.LeadID] = lead
	return nil
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

type fakePricing struct {
	stats *domain.CityEventStats
	err   error
}

func (f fakePricing) GetCityPricing(context.Context, string, domain.EventType, string) (*domain.CityEventStats, error) {
	return f.stats, f.err
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newIntakeService(store *fakeLeadStore, pricing PricingReader, bus events.Bus) *Service {
	return New(store, pricing, bus, logger.Discard(), Options{
		PhoneHashKey: []byte("test-key"),
		PhoneRegion:  "US",
		Now:          func() time.Time { return intakeNow },
	})
}

func weddingRequest() transport.SubmitLeadRequest {
	lo, hi, guests := 1500.0, 2000.0, 120
	return transport.SubmitLeadRequest{
		Email:      "  Bride@Example.COM ",
		Phone:      "(201) 555-0123",
		EventType:  "wedding",
		EventDate:  intakeNow.AddDate(0, 0, 20).Format(domain.DateLayout),
		City:       "Austin",
		State:      "TX",
		BudgetMin:  &lo,
		BudgetMax:  &hi,
		GuestCount: &guests,
		VenueName:  "The Barn",
		Notes:      "Outdoor ceremony",
	}
}

func TestSubmitLeadNormalizesScoresAndPublishes(t *testing.T) {
	store := newFakeLeadStore()
	bus := &recordingBus{}
	tension := domain.TensionHigh
	svc := newIntakeService(store, fakePricing{stats: &domain.CityEventStats{
		PriceMedian: 1700, SampleSize: 50, DataQuality: domain.QualityHigh, MarketTension: &tension,
	}}, bus)

	resp, err := svc.SubmitLead(context.Background(), weddingRequest())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, "bride@example.com", created.Email)
	require.NotNil(t, created.Phone)
	assert.Equal(t, "+12015550123", *created.Phone)
	require.NotNil(t, created.PhoneLookupHash)
	assert.Len(t, *created.PhoneLookupHash, 64)
	require.NotNil(t, created.BudgetMidpoint)
	assert.Equal(t, 1750.0, *created.BudgetMidpoint)
	assert.InDelta(t, 0.9, created.FormCompleteness, 1e-9)

	assert.Equal(t, 89, resp.LeadScore)
	assert.Equal(t, "high", resp.Quality)
	assert.Equal(t, "hot", resp.Temperature)

	require.Len(t, bus.published, 1)
	scored, ok := bus.published[0].(events.LeadScored)
	require.True(t, ok)
	assert.Equal(t, resp.LeadID, scored.LeadID.String())

	var components map[string]any
	require.NoError(t, json.Unmarshal(store.scored[0].Components, &components))
	assert.Equal(t, 20.0, components["budget"])
}

func TestSubmitLeadScoresWithDefaultsWhenMarketLookupFails(t *testing.T) {
	store := newFakeLeadStore()
	svc := newIntakeService(store, fakePricing{err: errors.New("redis down and db slow")}, &recordingBus{})

	resp, err := svc.SubmitLead(context.Background(), weddingRequest())
	require.NoError(t, err)
	assert.Equal(t, 15+25+14+10+10, resp.LeadScore)
}

func TestSubmitLeadRejectsInvertedBudgetAndPastDates(t *testing.T) {
	svc := newIntakeService(newFakeLeadStore(), fakePricing{}, &recordingBus{})

	req := weddingRequest()
	lo, hi := 3000.0, 1000.0
	req.BudgetMin, req.BudgetMax = &lo, &hi
	_, err := svc.SubmitLead(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	req = weddingRequest()
	req.EventDate = intakeNow.AddDate(0, 0, -1).Format(domain.DateLayout)
	_, err = svc.SubmitLead(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestExplainScoreRebuildsSummary(t *testing.T) {
	store := newFakeLeadStore()
	svc := newIntakeService(store, fakePricing{}, &recordingBus{})

	resp, err := svc.SubmitLead(context.Background(), weddingRequest())
	require.NoError(t, err)

	explanation, err := svc.ExplainScore(context.Background(), uuid.MustParse(resp.LeadID))
	require.NoError(t, err)
	assert.Equal(t, resp.LeadScore, explanation.LeadScore)
	assert.Contains(t, explanation.Summary, "budget 15/30")
	assert.Equal(t, "lead-score-v1", explanation.Components.Version)

	_, err = svc.ExplainScore(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
