package history

import (
	"fmt"
	"testing"

	"digil_monitor/internal/models"
)

func entry(ts string, value string) models.HistoryEntry {
	return models.HistoryEntry{Timestamp: ts, Value: models.Scalar(value), Source: models.SourceLive}
}

func TestAppend_MostRecentFirst(t *testing.T) {
	tr := NewTracker()
	tr.Append("EIT_WINDVEL", entry("10:00:00", "1.0"))
	tr.Append("EIT_WINDVEL", entry("10:00:10", "2.0"))
	tr.Append("EIT_WINDVEL", entry("10:00:15", "1.0"))

	h := tr.History("EIT_WINDVEL")
	if len(h) != 3 {
		t.Fatalf("expected 3 entries; got %d", len(h))
	}
	if h[0].Timestamp != "10:00:15" || h[2].Timestamp != "10:00:00" {
		t.Fatalf("expected most recent first; got %+v", h)
	}

	latest, ok := tr.Latest("EIT_WINDVEL")
	if !ok || latest.Timestamp != "10:00:15" {
		t.Fatalf("unexpected latest entry: %+v", latest)
	}
	if _, ok := tr.Latest("other"); ok {
		t.Fatalf("unknown id must have no latest entry")
	}
}

func TestAppend_CapsAtMaxEntries(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < MaxEntries+1; i++ {
		tr.Append("A", entry(fmt.Sprintf("ts-%d", i), fmt.Sprintf("%d", i)))
	}

	h := tr.History("A")
	if len(h) != MaxEntries {
		t.Fatalf("expected %d entries; got %d", MaxEntries, len(h))
	}
	if h[0].Value != "50" {
		t.Fatalf("expected newest value 50; got %s", h[0].Value)
	}
	if h[len(h)-1].Value != "1" {
		t.Fatalf("oldest entry should have been dropped; last is %s", h[len(h)-1].Value)
	}
}

func TestSummary(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 14; i++ {
		tr.Append("A", entry(fmt.Sprintf("ts-%d", i), fmt.Sprintf("%d", i)))
	}

	s := tr.Summary("A")
	if len(s.Recent) != SummaryEntries || s.Older != 4 || s.Total != 14 {
		t.Fatalf("unexpected summary: recent=%d older=%d total=%d", len(s.Recent), s.Older, s.Total)
	}
	if s.Recent[0].Value != "13" {
		t.Fatalf("summary must start with the newest entry; got %s", s.Recent[0].Value)
	}

	empty := tr.Summary("missing")
	if len(empty.Recent) != 0 || empty.Older != 0 || empty.Total != 0 {
		t.Fatalf("expected empty summary; got %+v", empty)
	}
}

func TestHistoryReturnsCopyAndReset(t *testing.T) {
	tr := NewTracker()
	tr.Append("A", entry("t1", "x"))

	h := tr.History("A")
	h[0].Value = "mutated"
	if tr.History("A")[0].Value != "x" {
		t.Fatalf("history must not be mutable from outside")
	}

	tr.Reset()
	if tr.Len("A") != 0 || tr.History("A") != nil {
		t.Fatalf("reset must clear all entries")
	}
}
