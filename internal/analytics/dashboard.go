package analytics

import (
	"context"
	"fmt"
	"time"
)

// Summary is the per-organization dashboard header.
type Summary struct {
	TotalLeads         int          `json:"totalLeads"`
	AICallsTriggered   int          `json:"aiCallsTriggered"`
	AverageSpeedToLead float64      `json:"averageSpeedToLead"`
	RecentLeads        []RecentLead `json:"recentLeads"`
}

// RecentLead is the compact lead row shown on the dashboard.
type RecentLead struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Dashboard aggregates lead activity for one organization.
type Dashboard struct {
	db PgxConn
}

func NewDashboard(db PgxConn) *Dashboard {
	return &Dashboard{db: db}
}

const recentLeadLimit = 5

// Summary computes lead totals and the recent-lead list for the org.
func (d *Dashboard) Summary(ctx context.Context, orgID string) (*Summary, error) {
	var s Summary
	err := d.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('ai_triggered', 'ai_failed')),
		       COALESCE(AVG(speed_to_lead_minutes), 0)
		FROM leads
		WHERE organization_id = $1
	`, orgID).Scan(&s.TotalLeads, &s.AICallsTriggered, &s.AverageSpeedToLead)
	if err != nil {
		return nil, fmt.Errorf("analytics: dashboard totals: %w", err)
	}

	rows, err := d.db.Query(ctx, `
		SELECT id, name, phone, status, received_at
		FROM leads
		WHERE organization_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`, orgID, recentLeadLimit)
	if err != nil {
		return nil, fmt.Errorf("analytics: recent leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l RecentLead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Status, &l.ReceivedAt); err != nil {
			return nil, fmt.Errorf("analytics: scan recent lead: %w", err)
		}
		s.RecentLeads = append(s.RecentLeads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: rows: %w", err)
	}
	return &s, nil
}
