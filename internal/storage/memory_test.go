package storage

import (
	"errors"
	"testing"
	"time"

	"payroll-gateway/internal/payroll"
)

func batch(id string, created time.Time) *payroll.Batch {
	return &payroll.Batch{
		ID:            id,
		Kind:          payroll.KindRegular,
		State:         payroll.StateDraft,
		DeclaredTotal: "0.00",
		CreatedAt:     created,
	}
}

func TestSaveGetListUpdate(t *testing.T) {
	m := NewMemory()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := m.Save(batch("b2", base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(batch("b1", base)); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(batch("b1", base)); !errors.Is(err, payroll.ErrAlreadyExists) {
		t.Fatalf("duplicate save must conflict, got %v", err)
	}

	if _, err := m.Get("missing"); !errors.Is(err, payroll.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	got, err := m.Get("b1")
	if err != nil {
		t.Fatal(err)
	}
	got.State = payroll.StateFailed
	again, _ := m.Get("b1")
	if again.State != payroll.StateDraft {
		t.Fatal("Get must return a copy, not the stored batch")
	}

	list := m.List()
	if len(list) != 2 || list[0].ID != "b1" || list[1].ID != "b2" {
		t.Fatalf("list must be ordered by creation time: %v, %v", list[0].ID, list[1].ID)
	}

	if _, err := m.Update("b1", func(b *payroll.Batch) error {
		b.State = payroll.StateSent
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	updated, _ := m.Get("b1")
	if updated.State != payroll.StateSent {
		t.Fatal("update was not persisted")
	}

	// A failing mutation must not be persisted.
	if _, err := m.Update("b1", func(b *payroll.Batch) error {
		b.State = payroll.StateConfirmed
		return errors.New("boom")
	}); err == nil {
		t.Fatal("want error from fn")
	}
	unchanged, _ := m.Get("b1")
	if unchanged.State != payroll.StateSent {
		t.Fatal("failed update leaked into the store")
	}
}
