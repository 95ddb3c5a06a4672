package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "org-1", (*string)(nil), "John Doe", "+14155552671", (*string)(nil), "pending", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	lead, err := repo.Create(context.Background(), CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "John Doe",
		Phone:          "+14155552671",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.Status != StatusPending {
		t.Errorf("expected pending, got %s", lead.Status)
	}
	if lead.ReceivedAt.IsZero() {
		t.Error("received_at should default to now")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimForDispatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mins := 7
	rows := pgxmock.NewRows([]string{
		"id", "organization_id", "crm_id", "name", "phone", "email", "status",
		"received_at", "ai_call_triggered_at", "speed_to_lead_minutes",
		"created_at", "updated_at",
	}).AddRow("lead-1", "org-1", nil, "John", "+14155552671", nil, "ai_triggered",
		now.Add(-7*time.Minute), &now, &mins, now, now)

	mock.ExpectQuery("UPDATE leads").
		WithArgs("lead-1", 7).
		WillReturnRows(rows)

	lead, err := repo.ClaimForDispatch(context.Background(), "lead-1", 7)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if lead.Status != StatusAITriggered {
		t.Errorf("expected ai_triggered, got %s", lead.Status)
	}
	if lead.SpeedToLeadMinutes == nil || *lead.SpeedToLeadMinutes != 7 {
		t.Errorf("speed_to_lead_minutes not stamped: %v", lead.SpeedToLeadMinutes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimForDispatch_AlreadyProcessed(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE leads").
		WithArgs("lead-1", 7).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	// The follow-up existence probe finds the row in a terminal state.
	existing := pgxmock.NewRows([]string{
		"id", "organization_id", "crm_id", "name", "phone", "email", "status",
		"received_at", "ai_call_triggered_at", "speed_to_lead_minutes",
		"created_at", "updated_at",
	}).AddRow("lead-1", "org-1", nil, "John", "+14155552671", nil, "ai_triggered",
		now, &now, nil, now, now)
	mock.ExpectQuery("SELECT id, organization_id").
		WithArgs("lead-1").
		WillReturnRows(existing)

	_, err := repo.ClaimForDispatch(context.Background(), "lead-1", 7)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimForDispatch_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE leads").
		WithArgs("nope", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT id, organization_id").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.ClaimForDispatch(context.Background(), "nope", 5)
	if !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestPostgresFindDue(t *testing.T) {
	repo, mock := newMockRepo(t)

	received := time.Now().UTC().Add(-10 * time.Minute)
	rows := pgxmock.NewRows([]string{"id", "organization_id", "received_at", "threshold_mins"}).
		AddRow("lead-1", "org-1", received, 5).
		AddRow("lead-2", "org-2", received, 3)
	mock.ExpectQuery("SELECT l.id, l.organization_id").
		WithArgs(5, 100).
		WillReturnRows(rows)

	due, err := repo.FindDue(context.Background(), 5, 100)
	if err != nil {
		t.Fatalf("find due failed: %v", err)
	}
	if len(due) != 2 || due[0].LeadID != "lead-1" || due[1].ThresholdMins != 3 {
		t.Fatalf("unexpected due leads: %+v", due)
	}
}

func TestPostgresMarkFailed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE leads").
		WithArgs("lead-1", "ai_triggered").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("lead-1"))

	ok, err := repo.MarkFailed(context.Background(), "lead-1", StatusAITriggered)
	if err != nil || !ok {
		t.Fatalf("mark failed: ok=%v err=%v", ok, err)
	}

	// Lead no longer in the expected prior status: no-op, no error.
	mock.ExpectQuery("UPDATE leads").
		WithArgs("lead-1", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	ok, err = repo.MarkFailed(context.Background(), "lead-1", StatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no update for mismatched prior status")
	}

	if _, err := repo.MarkFailed(context.Background(), "lead-1", Status("bogus")); err == nil {
		t.Fatal("expected error for invalid prior status")
	}
}
