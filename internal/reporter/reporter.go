package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/database"
	"focusmon/internal/models"
	"focusmon/pkg/utils"
)

// Reporter turns the transition journal into time-in-target reports
type Reporter struct {
	config *config.Config
	repo   *database.Repository
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo *database.Repository) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	// The period may still be running.
	end := period.End
	if now := r.now(); now.Before(end) {
		end = now
	}

	// A session may have started before the period did.
	carried, err := r.repo.GetLastTransitionBefore(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get previous transition: %w", err)
	}

	transitions, err := r.repo.GetTransitionsBetween(period.Start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}

	summaries := summarize(carried, transitions, period.Start, end)

	var totalSeconds int64
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		summaries[i].Duration = utils.FormatDuration(summaries[i].TotalSeconds)
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	return &models.Report{
		Period:       *period,
		Targets:      summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		Transitions:  len(transitions),
		GeneratedAt:  r.now(),
	}, nil
}

// summarize pairs every Enter with the next transition. Time between them
// goes to the entered target; a session still open at end is cut there
func summarize(carried *models.FocusTransition, transitions []*models.FocusTransition, start, end time.Time) []models.TargetSummary {
	totals := make(map[string]time.Duration)
	sessions := make(map[string]int)

	var (
		open     string
		openedAt time.Time
	)
	if carried != nil && carried.OpensSession() {
		open, openedAt = carried.Target, start
		sessions[open]++
	}

	for _, t := range transitions {
		if open != "" {
			totals[open] += t.Timestamp.Sub(openedAt)
			open = ""
		}
		if t.OpensSession() {
			open, openedAt = t.Target, t.Timestamp
			sessions[open]++
		}
	}
	if open != "" && end.After(openedAt) {
		totals[open] += end.Sub(openedAt)
	}

	summaries := make([]models.TargetSummary, 0, len(sessions))
	for target, count := range sessions {
		summaries = append(summaries, models.TargetSummary{
			Target:       target,
			TotalSeconds: int64(totals[target].Seconds()),
			Sessions:     count,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalSeconds != summaries[j].TotalSeconds {
			return summaries[i].TotalSeconds > summaries[j].TotalSeconds
		}
		return summaries[i].Target < summaries[j].Target
	})
	return summaries
}

// Period calculates the time range for the report
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.config.Location())
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	output := fmt.Sprintf("Focus Report - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	output += fmt.Sprintf("Time in targets: %.2fh (%.0fm), %d transitions\n\n",
		report.TotalHours, report.TotalMinutes, report.Transitions)

	if len(report.Targets) == 0 {
		output += "No target activity recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("%-30s %10s %10s %10s\n", "Target", "Time", "Sessions", "Percent")
	output += fmt.Sprintf("%s\n", "--------------------------------------------------------------------")

	for _, target := range report.Targets {
		output += fmt.Sprintf("%-30s %10s %10d %9.1f%%\n",
			truncate(target.Target, 30),
			target.Duration,
			target.Sessions,
			target.Percentage)
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
