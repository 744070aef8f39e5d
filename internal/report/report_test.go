package report

import (
	"strings"
	"testing"
	"time"

	"github.com/jakopako/gymbot/internal/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		status   types.RunStatus
		expected int
	}{
		{types.StatusReserved, 0},
		{types.StatusAlreadyReserved, 0},
		{types.StatusFailed, 1},
	}
	for _, tt := range tests {
		r := &types.RunResult{Status: tt.status}
		if c := ExitCode(r); c != tt.expected {
			t.Fatalf("expected exit code %d for status %s, got %d", tt.expected, tt.status, c)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	r := &types.RunResult{
		Status:     types.StatusFailed,
		Reason:     "slot-selection",
		FailedStep: "select-slot",
		Steps: []types.StepStat{
			{Name: "start", Outcome: "ok", Duration: 120 * time.Millisecond},
			{Name: "login", Outcome: "ok", Duration: 2 * time.Second},
			{Name: "select-slot", Outcome: "failed", Duration: 20 * time.Second},
		},
	}

	var sb strings.Builder
	PrintSummary(&sb, r)
	out := sb.String()

	for _, want := range []string{"start", "login", "select-slot", "failed", "slot-selection", "total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary does not mention '%s':\n%s", want, out)
		}
	}
}
