package grader

import (
	"errors"
	"testing"
)

func TestEnsureResult(t *testing.T) {
	t.Run("nil result becomes empty failure", func(t *testing.T) {
		res := EnsureResult(nil, nil)
		if res.Success {
			t.Error("a missing result must not count as graded")
		}
		if len(res.Messages) != 0 {
			t.Errorf("expected no messages, got %d", len(res.Messages))
		}
		if res.ShouldStop {
			t.Error("a missing result must not stop the run")
		}
	})

	t.Run("error becomes warning failure", func(t *testing.T) {
		res := EnsureResult(nil, errors.New("page not found"))
		if res.Success {
			t.Error("expected failure")
		}
		if len(res.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(res.Messages))
		}
		if res.Messages[0].Tone != ToneWarning {
			t.Errorf("expected warning tone, got %s", res.Messages[0].Tone)
		}
	})

	t.Run("error wins over result", func(t *testing.T) {
		res := EnsureResult(Successf("saved"), errors.New("boom"))
		if res.Success {
			t.Error("expected failure when error is set")
		}
	})

	t.Run("existing result passes through", func(t *testing.T) {
		orig := Successf("saved")
		if got := EnsureResult(orig, nil); got != orig {
			t.Error("expected same result back")
		}
	})
}

func TestDominantTone(t *testing.T) {
	tests := []struct {
		name string
		res  *Result
		want Tone
	}{
		{
			name: "warning beats everything",
			res: &Result{Success: true, Messages: []Message{
				{Text: "ok", Tone: ToneSuccess},
				{Text: "careful", Tone: ToneWarning},
				{Text: "note", Tone: ToneInfo},
			}},
			want: ToneWarning,
		},
		{
			name: "success beats info",
			res: &Result{Success: true, Messages: []Message{
				{Text: "note", Tone: ToneInfo},
				{Text: "ok", Tone: ToneSuccess},
			}},
			want: ToneSuccess,
		},
		{
			name: "info only",
			res:  &Result{Success: true, Messages: []Message{{Text: "note", Tone: ToneInfo}}},
			want: ToneInfo,
		},
		{
			name: "empty success falls back to flag",
			res:  &Result{Success: true},
			want: ToneSuccess,
		},
		{
			name: "empty failure falls back to flag",
			res:  &Result{Success: false},
			want: ToneWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.DominantTone(); got != tt.want {
				t.Errorf("DominantTone() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMergedText(t *testing.T) {
	res := Successf("grade saved").Append(ToneInfo, "auto-save was on")
	want := "grade saved\nauto-save was on"
	if got := res.MergedText(); got != want {
		t.Errorf("MergedText() = %q, want %q", got, want)
	}
}

func TestFailuref(t *testing.T) {
	res := Failuref("no submission for %s", "alice")
	if res.Success {
		t.Error("expected failure")
	}
	if res.Messages[0].Text != "no submission for alice" {
		t.Errorf("unexpected text: %q", res.Messages[0].Text)
	}
}
