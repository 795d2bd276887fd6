package seispick

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

var (
	_ DiagnosticSink = NopSink{}
	_ DiagnosticSink = (*ZapSink)(nil)
	_ DiagnosticSink = (*CsvDiagnostics)(nil)
)

func TestCsvDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.csv")
	sink, err := NewCsvDiagnostics(path)
	if err != nil {
		t.Fatalf("NewCsvDiagnostics: %v", err)
	}

	pickAt := time.Date(2024, 3, 1, 6, 0, 5, 0, time.UTC)
	sink.OnsetSkipped("TST", "S", 1)
	sink.NoPick("TST", "P", CauseNoExceedance, 12.5)
	sink.PickMade("ABC", "P", pickAt, 0.05, 42.0)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), raw)
	}
	if lines[0] != "Event,Station,Phase,Cause,Threshold,PickTime,PickError,Amplitude" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "onset_skipped,TST,S,available=1") {
		t.Errorf("skip row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "no_pick,TST,P,no exceedance") {
		t.Errorf("no-pick row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "pick,ABC,P") || !strings.Contains(lines[3], "2024-03-01T06:00:05Z") {
		t.Errorf("pick row = %q", lines[3])
	}
}

func TestZapSink(t *testing.T) {
	sink := NewZapSink(zap.NewNop())
	sink.OnsetSkipped("TST", "P", 0)
	sink.NoPick("TST", "P", CauseFitFailure, 3.0)
	sink.PickMade("TST", "P", time.Now(), 0.02, 10)
	if err := sink.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
