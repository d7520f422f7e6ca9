package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/jakechorley/issuer-allocation/pkg/core/allocator"
	"github.com/jakechorley/issuer-allocation/pkg/core/model"
	"github.com/jakechorley/issuer-allocation/pkg/core/services"
)

var (
	aboveColor = lipgloss.Color("#04B575")
	belowColor = lipgloss.Color("#FF0000")
	subtle     = lipgloss.Color("#626262")
)

// summaryStyles are bound to the output writer so colour is dropped when it is not a terminal
type summaryStyles struct {
	title lipgloss.Style
	above lipgloss.Style
	below lipgloss.Style
	muted lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(w)
	return summaryStyles{
		title: r.NewStyle().Bold(true),
		above: r.NewStyle().Foreground(aboveColor),
		below: r.NewStyle().Foreground(belowColor),
		muted: r.NewStyle().Foreground(subtle),
	}
}

// RenderSummary prints the per-member balance report.
// Members above the average are green, below are red.
func RenderSummary(w io.Writer, summary *allocator.ValidationSummary) {
	styles := newSummaryStyles(w)

	fmt.Fprintln(w, styles.title.Render(fmt.Sprintf("Average Points per Member: %.2f", summary.AveragePointsPerMember)))
	for _, m := range summary.Members {
		line := fmt.Sprintf("%s: Total - %.2f, Difference from Average - %.2f", m.Member, m.Total, m.DifferenceFromAverage)
		switch {
		case m.AboveAverage:
			fmt.Fprintln(w, styles.above.Render(line+" (Above Average)"))
		case m.BelowAverage:
			fmt.Fprintln(w, styles.below.Render(line+" (Below Average)"))
		default:
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, styles.muted.Render(fmt.Sprintf("Spread between most and least loaded: %.2f", summary.Spread())))
}

// RenderAllocationResult prints the run header, tier counts, duplicate warnings and summary
func RenderAllocationResult(w io.Writer, result *services.AllocateIssuersResult) {
	styles := newSummaryStyles(w)

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.title.Render("Issuer Allocation Results"))
	fmt.Fprintf(w, "Run ID:   %s\n", result.RunID)
	fmt.Fprintf(w, "Source:   %s\n", result.Source)
	fmt.Fprintf(w, "Issuers:  %d\n", len(result.Assignments))
	fmt.Fprintf(w, "Members:  %d\n", len(result.Members))
	fmt.Fprintln(w)

	for _, tier := range model.TierPriority {
		if count := result.TierCounts[tier]; count > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", tier, count)
		}
	}
	fmt.Fprintln(w)

	if len(result.Duplicates) > 0 {
		dups := append([]allocator.DuplicateIssuer(nil), result.Duplicates...)
		sort.SliceStable(dups, func(i, j int) bool { return dups[i].Issuer.Row < dups[j].Issuer.Row })

		fmt.Fprintln(w, styles.below.Render(fmt.Sprintf("Skipped %d duplicate issuer rows:", len(dups))))
		for _, d := range dups {
			fmt.Fprintf(w, "  row %d: %s (already allocated from row %d)\n", d.Issuer.Row, d.Issuer.ID, d.FirstRow)
		}
		fmt.Fprintln(w)
	}

	RenderSummary(w, result.Summary)
	fmt.Fprintln(w)

	if result.OutputPath != "" {
		fmt.Fprintf(w, "Allocation written to %s\n", result.OutputPath)
	}
	if result.PublishedTab != "" {
		fmt.Fprintf(w, "Published to sheet tab %q\n", result.PublishedTab)
	}
}
