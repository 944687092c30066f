package journal

import (
	"context"
	"testing"
)

func TestNewWithEmptyDSNIsNoop(t *testing.T) {
	j, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j != nil {
		t.Fatalf("expected nil journal for empty dsn")
	}
}

func TestNilJournalMethodsAreNoops(t *testing.T) {
	var j *Journal
	j.Close() // must not panic
}

func TestShouldRecordRejectAlwaysLogsCriticalReasons(t *testing.T) {
	j := &Journal{}
	for reason := range alwaysLogReasons {
		if !j.shouldRecordReject(reason) {
			t.Fatalf("expected %q to always be logged", reason)
		}
	}
}

func TestShouldRecordRejectSamplesOrdinaryReasons(t *testing.T) {
	j := &Journal{}
	hits := 0
	for i := 0; i < sampleEvery*3; i++ {
		if j.shouldRecordReject("weak_buy") {
			hits++
		}
	}
	if hits != 3 {
		t.Fatalf("expected exactly 3 sampled hits over %d calls, got %d", sampleEvery*3, hits)
	}
}
