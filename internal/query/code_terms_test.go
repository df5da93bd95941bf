package query

import (
	"reflect"
	"testing"
)

func TestIsCodeTerm(t *testing.T) {
	tests := []struct {
		term string
		want bool
	}{
		{"function", true},
		{"FUNCTION", true},
		{"method", true},
		{"db", true},
		{"handler", true},
		{"banana", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := IsCodeTerm(tt.term); got != tt.want {
				t.Errorf("IsCodeTerm(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestGetSynonyms(t *testing.T) {
	if syns := GetSynonyms("Auth"); len(syns) == 0 {
		t.Error("expected synonyms for auth")
	}
	if syns := GetSynonyms("unknown"); syns != nil {
		t.Errorf("expected nil synonyms, got %v", syns)
	}
}

func TestCanonicalTerm(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"method", "function"},
		{"endpoint", "api"},
		{"database", "database"},
		{"widget", "widget"},
	}

	for _, tt := range tests {
		if got := CanonicalTerm(tt.term); got != tt.want {
			t.Errorf("CanonicalTerm(%q) = %q, want %q", tt.term, got, tt.want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"parse json in golang", "go"},
		{"React component in TypeScript", "typescript"},
		{"find the c++ allocator", "cpp"},
		{"find user authentication", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	if got := NormalizeLanguage(" Golang "); got != "go" {
		t.Errorf("NormalizeLanguage(golang) = %q, want go", got)
	}
	if got := NormalizeLanguage("Elixir"); got != "elixir" {
		t.Errorf("NormalizeLanguage(Elixir) = %q, want elixir", got)
	}
}

func TestSplitCases(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"getUserName", []string{"get", "getusername", "name", "user"}},
		{"parse_http_request", []string{"http", "parse", "parse_http_request", "request"}},
		{"ab", []string{"ab"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := SplitCases(tt.term); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCases(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("Show me the Auth handler, and the auth middleware!")
	want := []string{"auth", "handler", "middleware"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestTerms(t *testing.T) {
	terms := Terms("validateToken in authService")
	want := map[string]bool{"validatetoken": true, "validate": true, "token": true, "authservice": true, "service": true}
	got := make(map[string]bool)
	for _, term := range terms {
		got[term] = true
	}
	for term := range want {
		if !got[term] {
			t.Errorf("Terms() missing %q, got %v", term, terms)
		}
	}
	if got["in"] {
		t.Error("Terms() should drop stop words")
	}
}

func TestCountTechnicalTerms(t *testing.T) {
	if got := CountTechnicalTerms("locate the database handler in go"); got != 3 {
		t.Errorf("CountTechnicalTerms() = %d, want 3", got)
	}
	if got := CountTechnicalTerms("hello there friend"); got != 0 {
		t.Errorf("CountTechnicalTerms() = %d, want 0", got)
	}
}
