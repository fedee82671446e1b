package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dclink/dockslot/internal/booking"
)

func TestRuntimeMetrics_AggregatesCommandAndChannelStats(t *testing.T) {
	dataDir := t.TempDir()
	recorder := NewRuntimeMetrics(dataDir)

	snap, err := recorder.RecordCommand(120*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("RecordCommand success error: %v", err)
	}
	if snap.Command.Total != 1 || snap.Command.Errors != 0 || snap.Command.Conflicts != 0 {
		t.Fatalf("unexpected first command snapshot: %+v", snap.Command)
	}

	_, _ = recorder.RecordCommand(250*time.Millisecond, errors.New("guard failed"))
	_, _ = recorder.RecordCommand(80*time.Millisecond, fmt.Errorf("request 7: %w", booking.ErrVersionConflict))
	snap, _ = recorder.RecordCommand(40*time.Millisecond, nil)

	if snap.Command.Total != 4 {
		t.Fatalf("expected 4 command executions, got %d", snap.Command.Total)
	}
	if snap.Command.Errors != 2 {
		t.Fatalf("expected 2 command errors, got %d", snap.Command.Errors)
	}
	if snap.Command.Conflicts != 1 {
		t.Fatalf("expected 1 version conflict, got %d", snap.Command.Conflicts)
	}
	if got := snap.Command.ErrorRatio(); got < 0.49 || got > 0.51 {
		t.Fatalf("expected error ratio about 0.50, got %.4f", got)
	}
	if snap.Command.P95ProxyLatencyMs <= 0 {
		t.Fatalf("expected p95 proxy latency > 0, got %d", snap.Command.P95ProxyLatencyMs)
	}

	_, _ = recorder.RecordChannelSend(true)
	_, _ = recorder.RecordChannelSend(false)
	snap, _ = recorder.RecordChannelSend(true)

	if snap.Channel.SendAttempts != 3 || snap.Channel.SendFailures != 1 {
		t.Fatalf("unexpected channel snapshot: %+v", snap.Channel)
	}
	if got := snap.Channel.FailureRatio(); got < 0.33 || got > 0.34 {
		t.Fatalf("expected channel failure ratio about 0.3333, got %.4f", got)
	}
}

func TestRuntimeMetrics_ReadRuntimeSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	recorder := NewRuntimeMetrics(dataDir)
	if _, err := recorder.RecordCommand(99*time.Millisecond, nil); err != nil {
		t.Fatalf("RecordCommand error: %v", err)
	}
	if _, err := recorder.RecordChannelSend(false); err != nil {
		t.Fatalf("RecordChannelSend error: %v", err)
	}

	snap, err := ReadRuntimeSnapshot(dataDir)
	if err != nil {
		t.Fatalf("ReadRuntimeSnapshot error: %v", err)
	}
	if snap.Command.Total != 1 || snap.Channel.SendAttempts != 1 || snap.Channel.SendFailures != 1 {
		t.Fatalf("unexpected loaded snapshot: %+v", snap)
	}
}

func TestRuntimeMetrics_NilRecorderIsSafe(t *testing.T) {
	var recorder *RuntimeMetrics
	if _, err := recorder.RecordCommand(time.Second, nil); err != nil {
		t.Fatalf("nil recorder must be a no-op, got %v", err)
	}
	if _, err := recorder.RecordChannelSend(true); err != nil {
		t.Fatalf("nil recorder must be a no-op, got %v", err)
	}
	if snap := recorder.Snapshot(); snap.HasData() {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
