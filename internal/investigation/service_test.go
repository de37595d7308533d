package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

// mockMutator implements IncidentMutator over an in-memory incident map.
type mockMutator struct {
	mu        sync.Mutex
	incidents map[string]*domain.SecurityIncident
}

func newMockMutator(incs ...*domain.SecurityIncident) *mockMutator {
	m := &mockMutator{incidents: make(map[string]*domain.SecurityIncident)}
	for _, inc := range incs {
		m.incidents[inc.ID] = inc
	}
	return m
}

func (m *mockMutator) Get(_ context.Context, id string) (*domain.SecurityIncident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	return inc.Clone(), nil
}

func (m *mockMutator) Mutate(_ context.Context, id string, fn func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error)) (*domain.SecurityIncident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	ev, err := fn(inc)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		inc.Timeline = append(inc.Timeline, *ev)
	}
	inc.UpdatedAt = time.Now()
	return inc.Clone(), nil
}

func (m *mockMutator) UpdateStatus(_ context.Context, id string, newStatus domain.IncidentStatus, _, _ string) (*domain.SecurityIncident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	if !inc.Status.CanTransitionTo(newStatus) {
		return nil, incidents.ErrInvalidTransition
	}
	inc.Status = newStatus
	return inc.Clone(), nil
}

func openIncident(id string) *domain.SecurityIncident {
	return &domain.SecurityIncident{
		ID:       id,
		Title:    "Suspicious OAuth grant",
		Type:     domain.IncidentTypeAccountCompromise,
		Severity: domain.SeverityHigh,
		Status:   domain.StatusOpen,
	}
}

func TestStartInvestigation(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)

	inv, err := svc.Start(context.Background(), "IR-1", "carol")
	require.NoError(t, err)

	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, "IR-1", inv.IncidentID)
	assert.Equal(t, "carol", inv.Investigator)

	inc, err := mutator.Get(context.Background(), "IR-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvestigating, inc.Status)
	assert.True(t, inc.HasTeamMember("carol"))

	require.NotEmpty(t, inc.Timeline)
	assert.Equal(t, "investigation started", inc.Timeline[0].Description)
}

func TestStartInvestigationIdempotent(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)

	first, err := svc.Start(context.Background(), "IR-1", "carol")
	require.NoError(t, err)

	second, err := svc.Start(context.Background(), "IR-1", "dave")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "carol", second.Investigator)
}

func TestStartInvestigationKeepsAdvancedStatus(t *testing.T) {
	inc := openIncident("IR-1")
	inc.Status = domain.StatusContained
	mutator := newMockMutator(inc)
	svc := NewService(mutator)

	_, err := svc.Start(context.Background(), "IR-1", "carol")
	require.NoError(t, err)

	got, err := mutator.Get(context.Background(), "IR-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusContained, got.Status)
}

func TestStartInvestigationUnknownIncident(t *testing.T) {
	svc := NewService(newMockMutator())

	_, err := svc.Start(context.Background(), "IR-missing", "carol")
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestGetRequiresStartedInvestigation(t *testing.T) {
	svc := NewService(newMockMutator(openIncident("IR-1")))

	_, err := svc.Get("IR-1")
	assert.ErrorIs(t, err, ErrInvestigationNotFound)
}

func TestAddFinding(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	finding, err := svc.AddFinding(ctx, "IR-1", domain.Finding{
		Type:        domain.FindingObservation,
		Description: "token minted from an unseen ASN",
		Confidence:  domain.ConfidenceMedium,
	}, "carol")
	require.NoError(t, err)

	assert.NotEmpty(t, finding.ID)
	assert.Equal(t, "carol", finding.AddedBy)
	assert.False(t, finding.AddedAt.IsZero())

	inv, err := svc.Get("IR-1")
	require.NoError(t, err)
	require.Len(t, inv.Findings, 1)

	// Medium confidence never stamps a root cause.
	inc, err := mutator.Get(ctx, "IR-1")
	require.NoError(t, err)
	assert.Empty(t, inc.Metadata[RootCauseMetadataKey])
}

func TestAddFindingRootCauseStampsMetadata(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	_, err = svc.AddFinding(ctx, "IR-1", domain.Finding{
		Type:        domain.FindingRootCause,
		Description: "phished service-account credentials",
		Confidence:  domain.ConfidenceHigh,
	}, "carol")
	require.NoError(t, err)

	inc, err := mutator.Get(ctx, "IR-1")
	require.NoError(t, err)
	assert.Equal(t, "phished service-account credentials", inc.Metadata[RootCauseMetadataKey])

	// A later high-confidence finding overwrites the stamp.
	_, err = svc.AddFinding(ctx, "IR-1", domain.Finding{
		Type:        domain.FindingRootCause,
		Description: "unpatched SSO gateway",
		Confidence:  domain.ConfidenceHigh,
	}, "carol")
	require.NoError(t, err)

	inc, err = mutator.Get(ctx, "IR-1")
	require.NoError(t, err)
	assert.Equal(t, "unpatched SSO gateway", inc.Metadata[RootCauseMetadataKey])

	inv, err := svc.Get("IR-1")
	require.NoError(t, err)
	rc, ok := inv.RootCause()
	require.True(t, ok)
	assert.Equal(t, "unpatched SSO gateway", rc.Description)
}

func TestAddHypothesis(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	hyp, err := svc.AddHypothesis(ctx, "IR-1", domain.Hypothesis{
		Description: "attacker pivoted via the CI runner",
		Probability: 60,
	}, "carol")
	require.NoError(t, err)

	assert.NotEmpty(t, hyp.ID)
	assert.Equal(t, domain.HypothesisProposed, hyp.Status)

	_, err = svc.AddHypothesis(ctx, "IR-1", domain.Hypothesis{Probability: 140}, "carol")
	assert.ErrorIs(t, err, ErrInvalidProbability)

	_, err = svc.AddHypothesis(ctx, "IR-1", domain.Hypothesis{Probability: -1}, "carol")
	assert.ErrorIs(t, err, ErrInvalidProbability)
}

func TestAddForensicEventAndRecommendation(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	require.NoError(t, svc.AddForensicEvent("IR-1", domain.ForensicEvent{
		Source:      "vpn-gateway",
		Description: "login from 198.51.100.9",
		AddedBy:     "carol",
	}))
	require.NoError(t, svc.AddRecommendation("IR-1", "enforce phishing-resistant MFA for service accounts"))

	inv, err := svc.Get("IR-1")
	require.NoError(t, err)
	require.Len(t, inv.ForensicEvents, 1)
	assert.False(t, inv.ForensicEvents[0].Timestamp.IsZero())
	assert.Equal(t, []string{"enforce phishing-resistant MFA for service accounts"}, inv.Recommendations)

	assert.ErrorIs(t, svc.AddForensicEvent("IR-other", domain.ForensicEvent{}), ErrInvestigationNotFound)
	assert.ErrorIs(t, svc.AddRecommendation("IR-other", "x"), ErrInvestigationNotFound)
}

func TestRemoveByIncident(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)

	_, err := svc.Start(context.Background(), "IR-1", "carol")
	require.NoError(t, err)

	svc.RemoveByIncident("IR-1")

	_, err = svc.Get("IR-1")
	assert.ErrorIs(t, err, ErrInvestigationNotFound)
}

func TestConcurrentFindings(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.AddFinding(ctx, "IR-1", domain.Finding{
				Type:        domain.FindingIndicator,
				Description: fmt.Sprintf("ioc %d", n),
				Confidence:  domain.ConfidenceLow,
			}, "carol")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	inv, err := svc.Get("IR-1")
	require.NoError(t, err)
	assert.Len(t, inv.Findings, writers)
}

func TestGetReturnsSnapshot(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	_, err = svc.AddFinding(ctx, "IR-1", domain.Finding{
		Type:        domain.FindingIndicator,
		Description: "ioc",
		Confidence:  domain.ConfidenceLow,
	}, "carol")
	require.NoError(t, err)

	snapshot, err := svc.Get("IR-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Findings, 1)

	// Later writes don't appear in an already-taken snapshot.
	_, err = svc.AddFinding(ctx, "IR-1", domain.Finding{
		Type:        domain.FindingObservation,
		Description: "later",
		Confidence:  domain.ConfidenceLow,
	}, "carol")
	require.NoError(t, err)
	assert.Len(t, snapshot.Findings, 1)

	// Mutating the snapshot doesn't leak into the workspace.
	snapshot.Findings[0].Description = "tampered"
	snapshot.Recommendations = append(snapshot.Recommendations, "tampered")

	fresh, err := svc.Get("IR-1")
	require.NoError(t, err)
	assert.Equal(t, "ioc", fresh.Findings[0].Description)
	assert.Empty(t, fresh.Recommendations)
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	mutator := newMockMutator(openIncident("IR-1"))
	svc := NewService(mutator)
	ctx := context.Background()

	_, err := svc.Start(ctx, "IR-1", "carol")
	require.NoError(t, err)

	const iterations = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := svc.AddFinding(ctx, "IR-1", domain.Finding{
				Type:        domain.FindingIndicator,
				Description: fmt.Sprintf("ioc %d", i),
				Confidence:  domain.ConfidenceLow,
			}, "carol")
			assert.NoError(t, err)
			_, err = svc.AddHypothesis(ctx, "IR-1", domain.Hypothesis{
				Description: fmt.Sprintf("theory %d", i),
				Probability: 50,
			}, "carol")
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			inv, err := svc.Get("IR-1")
			assert.NoError(t, err)
			_, err = json.Marshal(inv)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	inv, err := svc.Get("IR-1")
	require.NoError(t, err)
	assert.Len(t, inv.Findings, iterations)
	assert.Len(t, inv.Hypotheses, iterations)
}

// racingMutator advances the incident between the workspace
// registration and the status advance, like a second responder would.
type racingMutator struct {
	*mockMutator
}

func (m *racingMutator) Mutate(ctx context.Context, id string, fn func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error)) (*domain.SecurityIncident, error) {
	inc, err := m.mockMutator.Mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.incidents[id].Status = domain.StatusInvestigating
	m.mu.Unlock()
	return inc, nil
}

func TestStartInvestigationToleratesConcurrentAdvance(t *testing.T) {
	mutator := &racingMutator{mockMutator: newMockMutator(openIncident("IR-1"))}
	svc := NewService(mutator)

	inv, err := svc.Start(context.Background(), "IR-1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "IR-1", inv.IncidentID)

	inc, err := mutator.Get(context.Background(), "IR-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvestigating, inc.Status)
}
