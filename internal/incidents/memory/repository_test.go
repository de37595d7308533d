package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

func seedIncident(id string, createdAt time.Time) *domain.SecurityIncident {
	return &domain.SecurityIncident{
		ID:        id,
		Title:     "stored incident " + id,
		Type:      domain.IncidentTypeMalwareInfection,
		Severity:  domain.SeverityMedium,
		Status:    domain.StatusOpen,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	inc := seedIncident("IR-20260831-00000001", time.Now())
	require.NoError(t, repo.Create(ctx, inc))

	got, err := repo.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, inc.Title, got.Title)

	exists, err := repo.Exists(ctx, inc.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.Get(ctx, "IR-20260831-ffffffff")
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func TestCreateDuplicateID(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	inc := seedIncident("IR-20260831-00000001", time.Now())
	require.NoError(t, repo.Create(ctx, inc))
	assert.ErrorIs(t, repo.Create(ctx, inc), incidents.ErrDuplicateID)
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	inc := seedIncident("IR-20260831-00000001", time.Now())
	inc.Indicators = []string{"10.0.0.4"}
	require.NoError(t, repo.Create(ctx, inc))

	// Mutating the caller's copy must not leak into the store.
	inc.Indicators[0] = "tampered"
	inc.Title = "tampered"

	got, err := repo.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "stored incident IR-20260831-00000001", got.Title)
	assert.Equal(t, []string{"10.0.0.4"}, got.Indicators)

	// Mutating a fetched copy must not leak either.
	got.Status = domain.StatusClosed
	again, err := repo.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, again.Status)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	inc := seedIncident("IR-20260831-00000001", time.Now())
	require.NoError(t, repo.Create(ctx, inc))

	inc.Status = domain.StatusAcknowledged
	require.NoError(t, repo.Update(ctx, inc))

	got, err := repo.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, got.Status)

	assert.ErrorIs(t, repo.Update(ctx, seedIncident("IR-20260831-ffffffff", time.Now())),
		incidents.ErrIncidentNotFound)

	require.NoError(t, repo.Delete(ctx, inc.ID))
	_, err = repo.Get(ctx, inc.ID)
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)

	// Deleting an unknown ID is a no-op.
	assert.NoError(t, repo.Delete(ctx, inc.ID))
}

func TestListFiltersAndOrder(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		inc := seedIncident(fmt.Sprintf("IR-20260831-0000000%d", i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			inc.Severity = domain.SeverityHigh
		}
		if i == 4 {
			inc.Status = domain.StatusClosed
		}
		require.NoError(t, repo.Create(ctx, inc))
	}

	all, err := repo.List(ctx, incidents.Filters{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Newest first.
	assert.Equal(t, "IR-20260831-00000004", all[0].ID)
	assert.Equal(t, "IR-20260831-00000000", all[4].ID)

	high := domain.SeverityHigh
	bySeverity, err := repo.List(ctx, incidents.Filters{Severity: &high})
	require.NoError(t, err)
	assert.Len(t, bySeverity, 3)

	open, err := repo.List(ctx, incidents.Filters{OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 4)

	page, err := repo.List(ctx, incidents.Filters{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "IR-20260831-00000003", page[0].ID)
	assert.Equal(t, "IR-20260831-00000002", page[1].ID)

	past, err := repo.List(ctx, incidents.Filters{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}
