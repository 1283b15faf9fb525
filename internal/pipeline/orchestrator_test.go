package pipeline

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dgallion1/docnorm/internal/config"
)

func testOrchestrator(queueSize int) *Orchestrator {
	cfg := config.Config{MaxQueueSize: queueSize, JobTTL: 0}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(cfg, nil, log)
}

func TestOrchestrator_SubmitQueueFull(t *testing.T) {
	o := testOrchestrator(1)

	if err := o.Submit(o.NewJob("a.txt", []byte("a"))); err != nil {
		t.Fatalf("first submit should fit, got %v", err)
	}
	job := o.NewJob("b.txt", []byte("b"))
	if err := o.Submit(job); err == nil {
		t.Fatal("expected queue-full error")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := testOrchestrator(4)
	o.Stop()

	job := o.NewJob("late.txt", []byte("late"))
	if err := o.Submit(job); err == nil {
		t.Fatal("expected error submitting after shutdown")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", snap.Status)
	}
}

func TestOrchestrator_NewJobIdentity(t *testing.T) {
	o := testOrchestrator(1)
	a := o.NewJob("a.txt", []byte("a"))
	b := o.NewJob("b.txt", []byte("b"))
	if a.ID == b.ID || a.DocID == b.DocID {
		t.Error("expected distinct job and document ids")
	}
	if a.Status != StatusQueued {
		t.Errorf("expected queued status, got %s", a.Status)
	}
}
