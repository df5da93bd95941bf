package query

import (
	"strings"
	"testing"
)

func TestDecomposeComplexQuery(t *testing.T) {
	subs := DecomposeComplexQuery("find auth code and show error handling", nil)
	if len(subs) != 2 {
		t.Fatalf("expected 2 sub-queries, got %d: %+v", len(subs), subs)
	}

	if subs[0].Query != "find auth code" {
		t.Errorf("sub[0].Query = %q", subs[0].Query)
	}
	if subs[0].Priority != PriorityHigh {
		t.Errorf("sub[0].Priority = %q, want high", subs[0].Priority)
	}
	if len(subs[0].Dependencies) != 0 {
		t.Errorf("sub[0].Dependencies = %v, want empty", subs[0].Dependencies)
	}

	if subs[1].Query != "show error handling" {
		t.Errorf("sub[1].Query = %q", subs[1].Query)
	}
	if subs[1].Priority != PriorityMedium {
		t.Errorf("sub[1].Priority = %q, want medium", subs[1].Priority)
	}
	if len(subs[1].Dependencies) == 0 || subs[1].Dependencies[0] != "find auth code" {
		t.Errorf("sub[1].Dependencies = %v, want [find auth code]", subs[1].Dependencies)
	}
	if subs[1].Intent.Primary != IntentDebugIssue {
		t.Errorf("sub[1] intent = %q, want debug_issue", subs[1].Intent.Primary)
	}
}

func TestDecomposeComplexQuery_Simple(t *testing.T) {
	subs := DecomposeComplexQuery("find user authentication", nil)
	if subs == nil || len(subs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", subs)
	}
}

func TestDecomposeComplexQuery_Sentences(t *testing.T) {
	subs := DecomposeComplexQuery("Find the parser. Explain the tokenizer!", nil)
	if len(subs) != 2 {
		t.Fatalf("expected 2 sub-queries, got %d: %+v", len(subs), subs)
	}
	if subs[1].Query != "Explain the tokenizer" {
		t.Errorf("sub[1].Query = %q", subs[1].Query)
	}
	if subs[1].Intent.Primary != IntentUnderstandBehavior {
		t.Errorf("sub[1] intent = %q, want understand_behavior", subs[1].Intent.Primary)
	}
}

func TestDecomposeComplexQuery_DropsShortFragments(t *testing.T) {
	subs := DecomposeComplexQuery("find auth and or cache plus db", nil)
	for _, sub := range subs {
		if len(sub.Query) <= 3 {
			t.Errorf("fragment %q should have been dropped", sub.Query)
		}
	}
	if len(subs) != 2 {
		t.Errorf("expected 2 sub-queries, got %d: %+v", len(subs), subs)
	}
}

func TestIsComplex(t *testing.T) {
	long := strings.Repeat("token ", 20)

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"conjunction", "parse config also validate it", true},
		{"two sentences", "Parse it. Then log.", true},
		{"long and wordy", long, true},
		{"single sentence", "Parse the config.", false},
		{"conjunction inside word", "find the android handler", false},
		{"simple", "find user authentication", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplex(tt.query); got != tt.want {
				t.Errorf("IsComplex(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
