package mcp

import (
	"fmt"
	"strings"

	"github.com/kakapo-ai/kakapo/pkg/encyclopedia"
	"github.com/kakapo-ai/kakapo/pkg/models"
)

// formatAnswer renders an answer with its provenance on the last line.
func formatAnswer(a *models.Answer) string {
	var b strings.Builder
	b.WriteString(a.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "source: %s", a.Source)
	if a.Model != "" {
		fmt.Fprintf(&b, ", model: %s", a.Model)
	}
	if a.Title != "" {
		fmt.Fprintf(&b, ", article: %s", a.Title)
	}
	if a.Cached {
		b.WriteString(", cached")
	}
	b.WriteString("\n")
	return b.String()
}

// formatLookup renders an encyclopedia result.
func formatLookup(r encyclopedia.Result) string {
	if !r.Found || r.Title == "" {
		return r.Text
	}
	return fmt.Sprintf("%s\n\narticle: %s\n", r.Text, r.Title)
}

// formatAuditEntries formats audit entries as a text table.
func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-20s %-15s %-13s %-22s %6s %8s  %s\n",
		"Request ID", "Time", "Endpoint", "Source", "Model", "Status", "Tokens", "Question")
	b.WriteString(strings.Repeat("-", 140) + "\n")
	for _, e := range entries {
		q := e.Question
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		fmt.Fprintf(&b, "%-36s %-20s %-15s %-13s %-22s %6d %8d  %s\n",
			e.RequestID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Endpoint, e.Source, e.Model, e.StatusCode, e.TotalTokens, q)
	}
	return b.String()
}

// formatBudgetStatus formats the budget status as text.
func formatBudgetStatus(s models.BudgetStatus) string {
	if s.MaxTokens <= 0 {
		return "Budget enforcement is not configured."
	}
	pct := float64(s.Used) / float64(s.MaxTokens) * 100
	return fmt.Sprintf("Budget (%s)\n"+
		"  Max Tokens: %d\n"+
		"  Used:       %d\n"+
		"  Remaining:  %d\n"+
		"  Usage:      %.1f%%\n",
		s.Period, s.MaxTokens, s.Used, s.Remaining, pct)
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics (%s)\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Backend, stats.Entries, stats.Hits, stats.Misses, stats.HitRate()*100)
}
