package taskstore

import (
	"testing"
	"time"

	"ollaterm/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	store, err := NewStore(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSaveAndListTasks(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveTask("clean up /tmp"); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := store.SaveTask("update packages"); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Description != "clean up /tmp" {
		t.Fatalf("unexpected order: %v", tasks)
	}
}

func TestSaveTask_DuplicateIsNoop(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveTask("same task"); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := store.SaveTask("same task"); err != nil {
		t.Fatalf("duplicate save must not error: %v", err)
	}
	tasks, _ := store.ListTasks()
	if len(tasks) != 1 {
		t.Fatalf("expected deduplicated task, got %d", len(tasks))
	}
}

func TestSaveTask_EmptyRejected(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveTask("   "); err == nil {
		t.Fatalf("expected error on empty description")
	}
}

func TestDeleteTask(t *testing.T) {
	store := newTestStore(t)
	store.SaveTask("to delete")
	tasks, _ := store.ListTasks()
	if err := store.DeleteTask(tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	tasks, _ = store.ListTasks()
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks after delete, got %d", len(tasks))
	}
}

func TestTouchTask_BumpsRunCount(t *testing.T) {
	store := newTestStore(t)
	store.SaveTask("rerun me")
	if err := store.TouchTask("rerun me"); err != nil {
		t.Fatalf("TouchTask failed: %v", err)
	}
	if err := store.TouchTask("rerun me"); err != nil {
		t.Fatalf("TouchTask failed: %v", err)
	}
	tasks, _ := store.ListTasks()
	if tasks[0].RunCount != 2 {
		t.Fatalf("expected run count 2, got %d", tasks[0].RunCount)
	}
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	id, err := store.RecordRun(RunRecord{
		Task:        "list files",
		Model:       "llama3",
		Status:      "done",
		Iterations:  2,
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
	})
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated run id")
	}
	_, err = store.RecordRun(RunRecord{
		Task:       "broken task",
		Model:      "llama3",
		Status:     "failed",
		Iterations: 60,
		FailReason: "iteration limit exceeded (60)",
		StartedAt:  now,
	})
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Task != "broken task" {
		t.Fatalf("expected newest first, got %v", runs[0])
	}
	if runs[1].Iterations != 2 || runs[1].Status != "done" {
		t.Fatalf("round-trip mismatch: %+v", runs[1])
	}
}

func TestRecordRun_RequiresTask(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.RecordRun(RunRecord{}); err == nil {
		t.Fatalf("expected error for empty task")
	}
}

func TestNilStoreGuards(t *testing.T) {
	var s *Store
	if err := s.SaveTask("x"); err == nil {
		t.Fatalf("expected nil-store error")
	}
	if _, err := s.ListTasks(); err == nil {
		t.Fatalf("expected nil-store error")
	}
}
