package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "ai", "avg"}).AddRow(42, 7, 6.5))

	receivedAt := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, phone, status, received_at`).
		WithArgs("org-1", recentLeadLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "status", "received_at"}).
			AddRow("lead-1", "Dana Smith", "+15557654321", "ai_triggered", receivedAt))

	summary, err := NewDashboard(mock).Summary(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 42, summary.TotalLeads)
	assert.Equal(t, 7, summary.AICallsTriggered)
	assert.InDelta(t, 6.5, summary.AverageSpeedToLead, 0.001)
	require.Len(t, summary.RecentLeads, 1)
	assert.Equal(t, "Dana Smith", summary.RecentLeads[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
