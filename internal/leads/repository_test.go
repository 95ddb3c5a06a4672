package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestInMemoryClaimIsExclusive(t *testing.T) {
	repo := NewInMemoryRepository()
	lead, err := repo.Create(context.Background(), CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "John",
		Phone:          "+14155552671",
		ReceivedAt:     time.Now().UTC().Add(-10 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate overlapping evaluator runs claiming the same lead.
	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ClaimForDispatch(context.Background(), lead.ID, 10); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyProcessed) {
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}

	got, _ := repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusAITriggered {
		t.Errorf("expected ai_triggered, got %s", got.Status)
	}
	if got.SpeedToLeadMinutes == nil || *got.SpeedToLeadMinutes != 10 {
		t.Errorf("speed_to_lead_minutes not stamped: %v", got.SpeedToLeadMinutes)
	}
}

func TestInMemoryFindDueUsesDefaultThreshold(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	// Received 6 minutes ago, org has no configured threshold.
	overdue, _ := repo.Create(ctx, CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "Overdue",
		Phone:          "+14155552671",
		ReceivedAt:     time.Now().UTC().Add(-6 * time.Minute),
	})
	// Received just now: not due.
	fresh, _ := repo.Create(ctx, CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "Fresh",
		Phone:          "+14155552672",
	})

	due, err := repo.FindDue(ctx, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].LeadID != overdue.ID {
		t.Fatalf("expected only the overdue lead, got %+v", due)
	}
	if due[0].ThresholdMins != 5 {
		t.Errorf("expected default threshold 5, got %d", due[0].ThresholdMins)
	}
	_ = fresh
}

func TestInMemoryFindDueRespectsOrgThreshold(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.SetOrgThreshold("org-1", 15)
	ctx := context.Background()

	_, _ = repo.Create(ctx, CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "Waiting",
		Phone:          "+14155552671",
		ReceivedAt:     time.Now().UTC().Add(-6 * time.Minute),
	})

	due, err := repo.FindDue(ctx, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("lead should not be due under a 15-minute threshold: %+v", due)
	}
}

func TestInMemoryMarkFailed(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	lead, _ := repo.Create(ctx, CreateLeadParams{
		OrganizationID: "org-1",
		Name:           "John",
		Phone:          "+14155552671",
	})

	ok, err := repo.MarkFailed(ctx, lead.ID, StatusPending)
	if err != nil || !ok {
		t.Fatalf("mark failed from pending: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkFailed(ctx, lead.ID, StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second transition from pending should be a no-op")
	}

	got, _ := repo.GetByID(ctx, lead.ID)
	if got.Status != StatusAIFailed {
		t.Errorf("expected ai_failed, got %s", got.Status)
	}
}
