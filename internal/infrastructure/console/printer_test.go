package console

import (
	"bytes"
	"strings"
	"testing"

	"PaperIngest/internal/domain"
)

func TestPrinterRendersTally(t *testing.T) {
	t.Parallel()

	var report domain.RunReport
	report.RunID = "run-1"
	report.Add(domain.ItemResult{ID: "a", Title: "First paper", Status: domain.StatusSucceeded, Bytes: 2048})
	report.Add(domain.ItemResult{ID: "b", Title: "Second paper", Status: domain.StatusSkipped, Stage: "skip-if-exists", Reason: "already exists"})
	report.Add(domain.ItemResult{ID: "c", Title: "Third paper", Status: domain.StatusFailed, Stage: "fetch", Reason: "unexpected status 404"})

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if p.styled {
		t.Fatalf("buffer must not be treated as a terminal")
	}
	if err := p.Print(report); err != nil {
		t.Fatalf("print: %v", err)
	}

	out := strings.ToLower(buf.String())
	for _, want := range []string{"run-1", "first paper", "already exists", "unexpected status 404", "33.3%", "2.0 kb"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
