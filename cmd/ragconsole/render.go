package main

import (
	"fmt"
	"strings"

	"github.com/ahrav/ragconsole/internal/domain"
)

const barWidth = 20

// percent renders a [0,1] score as a percentage with one decimal.
func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", domain.ClampScore(*v)*100)
}

// bar renders a fixed-width score bar.
func bar(v *float64) string {
	if v == nil {
		return strings.Repeat("·", barWidth)
	}
	filled := int(domain.ClampScore(*v)*barWidth + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// cardValue renders a retrieval card value with its unit.
func cardValue(c domain.MetricCard) string {
	switch {
	case c.Value == nil:
		return "n/a"
	case c.Scored:
		return percent(c.Value)
	case c.Unit != "":
		return fmt.Sprintf("%.1f %s", *c.Value, c.Unit)
	default:
		return fmt.Sprintf("%.0f", *c.Value)
	}
}

// entryLine renders one metric entry without styling.
func entryLine(e domain.MetricEntry, labelWidth int) string {
	line := fmt.Sprintf("%-*s %7s  %-11s %s", labelWidth, e.Label, percent(e.Score), e.Tier(), bar(e.Score))
	if e.Passing != nil {
		if *e.Passing {
			line += "  pass"
		} else {
			line += "  fail"
		}
	}
	return line
}

func labelWidth(entries []domain.MetricEntry) int {
	w := 8
	for _, e := range entries {
		w = max(w, len(e.Label))
	}
	return w
}

// retrievalTitle names the retrieval block by its detected shape.
func retrievalTitle(rm *domain.RetrievalMetrics) string {
	switch rm.Shape {
	case domain.RetrievalShapeLegacy:
		return "Retrieval metrics (hit rate / MRR)"
	case domain.RetrievalShapeLabelFree:
		return "Retrieval metrics (label-free)"
	default:
		return "Retrieval metrics"
	}
}
