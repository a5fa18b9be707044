package console

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

const maxTitleWidth = 60

// Printer renders the final run tally as a table.
type Printer struct {
	out    io.Writer
	styled bool
}

var _ ports.ReportPrinter = (*Printer)(nil)

// NewPrinter writes to out. Rounded box drawing is used only when out is a
// terminal.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out, styled: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Print writes the per-item table followed by the totals.
func (p *Printer) Print(report domain.RunReport) error {
	_, err := io.WriteString(p.out, p.Render(report)+"\n")
	return err
}

// Render builds the summary block.
func (p *Printer) Render(report domain.RunReport) string {
	tw := table.NewWriter()
	if p.styled {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	tw.SetTitle("Run %s", report.RunID)
	tw.AppendHeader(table.Row{"#", "Title", "Status", "Stage", "Reason"})
	for i, res := range report.Items {
		status := string(res.Status)
		if res.Degraded {
			status += " (degraded)"
		}
		tw.AppendRow(table.Row{i + 1, res.Title, status, res.Stage, res.Reason})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: maxTitleWidth},
		{Number: 5, WidthMax: maxTitleWidth},
	})

	tw.AppendFooter(table.Row{"", "fetched", report.Total, "", ""})
	tw.AppendFooter(table.Row{"", "succeeded", report.Succeeded, "", ""})
	tw.AppendFooter(table.Row{"", "skipped", report.Skipped, "", ""})
	tw.AppendFooter(table.Row{"", "failed", report.Failed, "", ""})
	if report.Degraded > 0 {
		tw.AppendFooter(table.Row{"", "degraded", report.Degraded, "", ""})
	}
	if report.Bytes > 0 {
		tw.AppendFooter(table.Row{"", "downloaded", humanize.Bytes(uint64(report.Bytes)), "", ""})
	}
	tw.AppendFooter(table.Row{"", "success rate", fmt.Sprintf("%.1f%%", report.SuccessRate()), "", ""})

	return tw.Render()
}
