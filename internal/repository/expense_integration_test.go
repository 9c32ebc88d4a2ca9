//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/service"
	"github.com/spendtrack/spendtrack/internal/testutil"
)

// ============================================================================
// Expense Repository Integration Tests
// ============================================================================

func newExpenseTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	repo, err := New(ctx, dbURL, 5*time.Second)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetExpenseData(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset expense data: %v", err)
	}

	return ctx, repo
}

func seedExpense(t *testing.T, ctx context.Context, repo *Repository, owner, category string, amount float64, date time.Time) *model.Expense {
	t.Helper()
	e := testutil.NewTestExpense(t, owner)
	e.Category = category
	e.Amount = amount
	e.Date = date
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func TestIntegrationExpenseRepository_CreateAndList(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	e := testutil.NewTestExpense(t, "user-1")
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	expenses, err := repo.List(ctx, service.ExpenseFilter{OwnerID: "user-1"}, "", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}

	got := expenses[0]
	if got.ID != e.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, e.ID)
	}
	if got.Title != e.Title {
		t.Errorf("Title mismatch: got %q, want %q", got.Title, e.Title)
	}
	if got.PaymentMethod != e.PaymentMethod {
		t.Errorf("PaymentMethod mismatch: got %q, want %q", got.PaymentMethod, e.PaymentMethod)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationExpenseRepository_ListOwnerScoped(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedExpense(t, ctx, repo, "user-1", "Food", 10, day)
	seedExpense(t, ctx, repo, "user-1", "Food", 20, day)
	seedExpense(t, ctx, repo, "user-2", "Food", 30, day)

	expenses, err := repo.List(ctx, service.ExpenseFilter{OwnerID: "user-1"}, "", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses for user-1, got %d", len(expenses))
	}
	for _, e := range expenses {
		if e.OwnerID != "user-1" {
			t.Errorf("leaked expense owned by %q", e.OwnerID)
		}
	}
}

func TestIntegrationExpenseRepository_ListWindowAndSort(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedExpense(t, ctx, repo, "user-1", "Food", float64(50-i*10), base.AddDate(0, 0, i))
	}

	// Ascending by amount, second page of two
	expenses, err := repo.List(ctx, service.ExpenseFilter{OwnerID: "user-1"}, "amount", 2, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses in window, got %d", len(expenses))
	}
	if expenses[0].Amount != 30 || expenses[1].Amount != 40 {
		t.Errorf("unexpected window: %v, %v", expenses[0].Amount, expenses[1].Amount)
	}
}

func TestIntegrationExpenseRepository_CountWithFilters(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedExpense(t, ctx, repo, "user-1", "Food", 10, base.AddDate(0, 0, i))
	}
	seedExpense(t, ctx, repo, "user-1", "Transport", 5, base)

	count, err := repo.Count(ctx, service.ExpenseFilter{OwnerID: "user-1", Category: "Food"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 food expenses, got %d", count)
	}

	start, end := base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)
	count, err = repo.Count(ctx, service.ExpenseFilter{
		OwnerID:   "user-1",
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 expenses in range, got %d", count)
	}
}

func TestIntegrationExpenseRepository_Update(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	e := seedExpense(t, ctx, repo, "user-1", "Food", 10, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	amount := 25.0
	method := model.PaymentCredit
	updated, err := repo.Update(ctx, "user-1", e.ID, service.ExpenseUpdate{
		Amount:        &amount,
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Amount != 25.0 {
		t.Errorf("expected amount 25, got %v", updated.Amount)
	}
	if updated.PaymentMethod != model.PaymentCredit {
		t.Errorf("expected credit, got %q", updated.PaymentMethod)
	}
	if updated.Title != e.Title {
		t.Errorf("expected title unchanged, got %q", updated.Title)
	}
	if !updated.UpdatedAt.After(e.UpdatedAt) {
		t.Error("expected updated_at to advance")
	}
}

func TestIntegrationExpenseRepository_UpdateForeignRecord(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	e := seedExpense(t, ctx, repo, "user-1", "Food", 10, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	title := "hijacked"
	_, err := repo.Update(ctx, "user-2", e.ID, service.ExpenseUpdate{Title: &title})
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestIntegrationExpenseRepository_Delete(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	e := seedExpense(t, ctx, repo, "user-1", "Food", 10, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	if err := repo.Delete(ctx, "user-1", e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	err := repo.Delete(ctx, "user-1", e.ID)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestIntegrationExpenseRepository_AggregateByCategory(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedExpense(t, ctx, repo, "user-1", "Food", 100, day)
	seedExpense(t, ctx, repo, "user-2", "Food", 50, day)
	seedExpense(t, ctx, repo, "user-1", "Transport", 30, day)

	aggregates, err := repo.AggregateByCategory(ctx, nil, nil)
	if err != nil {
		t.Fatalf("AggregateByCategory failed: %v", err)
	}
	if len(aggregates) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(aggregates))
	}

	// Aggregation spans all owners and orders by total descending
	if aggregates[0].Category != "Food" || aggregates[0].TotalAmount != 150 || aggregates[0].Count != 2 {
		t.Errorf("unexpected first group: %+v", aggregates[0])
	}
	if aggregates[1].Category != "Transport" || aggregates[1].TotalAmount != 30 || aggregates[1].Count != 1 {
		t.Errorf("unexpected second group: %+v", aggregates[1])
	}
}

func TestIntegrationExpenseRepository_AggregateWithRange(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedExpense(t, ctx, repo, "user-1", "Food", 10, base)
	seedExpense(t, ctx, repo, "user-1", "Food", 20, base.AddDate(0, 0, 10))

	start, end := base, base.AddDate(0, 0, 5)
	aggregates, err := repo.AggregateByCategory(ctx, &start, &end)
	if err != nil {
		t.Fatalf("AggregateByCategory failed: %v", err)
	}
	if len(aggregates) != 1 {
		t.Fatalf("expected 1 group, got %d", len(aggregates))
	}
	if aggregates[0].TotalAmount != 10 {
		t.Errorf("expected only the in-range record, got total %v", aggregates[0].TotalAmount)
	}
}

func TestIntegrationSnapshotRepository_CreateSnapshots(t *testing.T) {
	ctx, repo := newExpenseTestEnv(t)

	snapshots := make([]*model.CategorySnapshot, 0, 3)
	for i := 0; i < 3; i++ {
		snapshots = append(snapshots, &model.CategorySnapshot{
			ID:          testutil.UniqueID(),
			Category:    fmt.Sprintf("Category %d", i),
			TotalAmount: float64(i * 10),
			Count:       int64(i),
			StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			CreatedAt:   time.Now().UTC(),
		})
	}

	if err := repo.CreateSnapshots(ctx, snapshots); err != nil {
		t.Fatalf("CreateSnapshots failed: %v", err)
	}

	// Idempotent on redelivery
	if err := repo.CreateSnapshots(ctx, snapshots); err != nil {
		t.Fatalf("CreateSnapshots (redelivery) failed: %v", err)
	}

	stored, err := repo.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(stored))
	}
}
