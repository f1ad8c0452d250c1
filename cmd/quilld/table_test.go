package main

import (
	"strings"
	"testing"
)

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]tableColumn{{header: "Key"}, {header: "Count", alignRight: true}},
		[][]string{
			{"diary", "3"},
			{"dream"},
		},
	)
	for _, want := range []string{"Key", "Count", "diary", "dream", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 4 {
		t.Fatalf("expected bordered table, got %d lines:\n%s", len(lines), out)
	}
}

func TestRenderTableEmptyColumns(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
