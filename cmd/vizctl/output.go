package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/websapdev/ai-visibility/internal/models"
)

func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// renderOverview writes a terminal view of a brand's overview
func renderOverview(w io.Writer, brandName string, overview *models.Overview) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "AI VISIBILITY: %s\n", brandName)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Share of Voice:      %d%%\n", overview.Headline.OverallSov)
	fmt.Fprintf(w, "Answers:             %d\n", overview.Headline.TotalAnswers)
	fmt.Fprintf(w, "Competitors tracked: %d\n", overview.Headline.CompetitorsTracked)

	fmt.Fprintln(w, "\nBy engine:")
	if len(overview.EngineChart) == 0 {
		fmt.Fprintln(w, "   (no data)")
	}
	for _, e := range overview.EngineChart {
		fmt.Fprintf(w, "   %-15s %5.1f%%\n", e.Name+":", e.Sov)
	}

	fmt.Fprintln(w, "\nTrend:")
	if len(overview.Trend) == 0 {
		fmt.Fprintln(w, "   (no data)")
	}
	for _, p := range overview.Trend {
		fmt.Fprintf(w, "   %s  %5.1f%%  %s\n", p.Date, p.BrandSov, strings.Repeat("#", int(p.BrandSov/5)))
	}

	fmt.Fprintln(w, "\nPrompts:")
	for _, p := range overview.Prompts {
		fmt.Fprintf(w, "   [%3d] %s\n", p.AnswerCount, p.Text)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
