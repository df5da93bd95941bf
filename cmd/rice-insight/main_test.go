package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ricesearch/rice-insight/internal/metrics"
	"github.com/ricesearch/rice-insight/internal/query"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "rice-insight dev") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAnalyzeCmd_JSON(t *testing.T) {
	out, err := run(t, "analyze", "--format", "json", "--language", "go", "find auth code and show error handling")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	var pq query.ProcessedQuery
	if err := json.Unmarshal([]byte(out), &pq); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if pq.OriginalQuery != "find auth code and show error handling" {
		t.Errorf("OriginalQuery = %q", pq.OriginalQuery)
	}
	if len(pq.SubQueries) != 2 {
		t.Errorf("got %d sub-queries, want 2", len(pq.SubQueries))
	}
	if pq.Language != "go" {
		t.Errorf("Language = %q, want go", pq.Language)
	}
}

func TestAnalyzeCmd_Text(t *testing.T) {
	out, err := run(t, "analyze", "debug", "the", "crash", "in", "the", "parser")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	for _, want := range []string{"Query:      debug the crash in the parser", "Intent:     debug_issue"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCmd(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		want    string
	}{
		{"valid", "find the retry loop in the http client", false, "Query is valid"},
		{"too short", "ab", true, "Query is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "validate", tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestDecomposeCmd(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"find auth code and show error handling", []string{"1. find auth code", "2. show error handling", "after: find auth code"}},
		{"find user authentication", []string{"no sub-queries"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			out, err := run(t, "decompose", tt.query)
			if err != nil {
				t.Fatalf("decompose error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestParseQueries(t *testing.T) {
	input := "# header\nfind auth code\n\n   \n  debug the parser  \n#skip\n"
	got, err := parseQueries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseQueries() error = %v", err)
	}
	want := []string{"find auth code", "debug the parser"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryContext(t *testing.T) {
	cmd := analyzeCmd()
	if err := cmd.ParseFlags([]string{"--language", "python", "--agent", "debugging", "--snapshot", "a", "--snapshot", "b", "--framework", "django"}); err != nil {
		t.Fatal(err)
	}

	qctx := queryContext(cmd)
	if qctx.Language != "python" || qctx.AgentType != "debugging" {
		t.Errorf("context = %+v", qctx)
	}
	if qctx.Workspace == nil {
		t.Fatal("expected workspace")
	}
	if len(qctx.Workspace.SnapshotIDs) != 2 || qctx.Workspace.Frameworks[0] != "django" || qctx.Workspace.Languages[0] != "python" {
		t.Errorf("workspace = %+v", qctx.Workspace)
	}

	bare := analyzeCmd()
	if err := bare.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if queryContext(bare).Workspace != nil {
		t.Error("expected no workspace without workspace flags")
	}
}

func TestBatchCmd_NoQueries(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader("# nothing\n\n"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"batch", "-"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for empty batch input")
	}
}

func TestPrinterMetrics(t *testing.T) {
	m := metrics.New()
	m.RecordQuery("find_usage", 0.8, 0.2, 0)
	m.RecordQuery("debug_issue", 0.85, 0.4, 0)
	m.RecordSearch("debug_issue", 20, 10, 4, 0.5)

	var out bytes.Buffer
	p := &printer{w: &out}
	if err := p.metrics(m.Summary()); err != nil {
		t.Fatalf("metrics error = %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Queries:    2") {
		t.Errorf("missing query count in %q", text)
	}
	if strings.Index(text, "debug_issue") > strings.Index(text, "find_usage") {
		t.Errorf("intents not sorted in %q", text)
	}
	if !strings.Contains(text, "Searches:   1 (20.0ms avg") {
		t.Errorf("missing search line in %q", text)
	}
}
