package alerts

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO system_alerts`).
		WithArgs(pgxmock.AnyArg(), "org-1", (*string)(nil), KindAICallFailed, "critical", "retell returned 500", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("alert-1"))

	store := NewPostgresStore(mock)
	id, err := store.Record(context.Background(), Alert{
		OrganizationID: "org-1",
		Kind:           KindAICallFailed,
		Severity:       SeverityCritical,
		Message:        "retell returned 500",
	})
	require.NoError(t, err)
	assert.Equal(t, "alert-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryStoreOrdering(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		_, err := store.Record(ctx, Alert{OrganizationID: "org-1", Kind: KindAICallFailed, Message: msg})
		require.NoError(t, err)
	}
	_, err := store.Record(ctx, Alert{OrganizationID: "org-2", Kind: KindQueueFailure, Message: "other org"})
	require.NoError(t, err)

	got, err := store.ListByOrg(ctx, "org-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}

func TestInMemoryStoreDefaults(t *testing.T) {
	store := NewInMemoryStore()
	id, err := store.Record(context.Background(), Alert{OrganizationID: "org-1", Kind: KindCredentialMissing, Message: "no retell key"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := store.ListByOrg(context.Background(), "org-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.False(t, got[0].CreatedAt.IsZero())
}
