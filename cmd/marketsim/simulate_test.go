package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSimulateSummary(t *testing.T) {
	var buf bytes.Buffer
	err := simulate(&buf, simOptions{
		duration:   3 * time.Minute,
		seed:       11,
		processors: 1,
		credits:    2000,
		hopEvery:   30 * time.Second,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"simulated 3m0s", "credits:  2,000 ->", "trades:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateUnknownCatalog(t *testing.T) {
	var buf bytes.Buffer
	err := simulate(&buf, simOptions{duration: time.Second, catalogPath: "/nonexistent/catalog.yaml"})
	if err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
