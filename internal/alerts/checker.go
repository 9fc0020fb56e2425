package alerts

import (
	"fmt"
	"sort"
	"time"

	"teleasistencia-backend/internal/types"
)

// Check evaluates overdue follow-ups. Beneficiaries classified as
// pending produce a warning, urgent ones a critical alert. Up-to-date
// beneficiaries produce nothing.
func Check(statuses map[string]types.FollowUpStatus, lastSuccessful map[string]types.CallSnapshot, now time.Time) []types.FollowUpAlert {
	var alerts []types.FollowUpAlert

	for beneficiary, status := range statuses {
		var severity types.AlertSeverity
		switch status {
		case types.StatusWarning:
			severity = types.SeverityWarning
		case types.StatusDanger:
			severity = types.SeverityCritical
		default:
			continue
		}

		alerts = append(alerts, types.FollowUpAlert{
			Beneficiary: beneficiary,
			Status:      status,
			Severity:    severity,
			Message:     message(beneficiary, lastSuccessful, now),
		})
	}

	// Critical first, then alphabetical for a stable dashboard order
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity == types.SeverityCritical
		}
		return alerts[i].Beneficiary < alerts[j].Beneficiary
	})

	return alerts
}

// SummaryEvent condenses a snapshot into the event pushed to dashboard
// clients, including alerts for every overdue beneficiary. Both the
// post-upload broadcast and the periodic reclassification broadcast go
// through here so clients always see the same payload shape.
func SummaryEvent(s *types.ReportSnapshot, now time.Time) types.ReportSummaryEvent {
	statuses := make(map[string]types.FollowUpStatus, len(s.Beneficiaries))
	for _, name := range s.OnTrack {
		statuses[name] = types.StatusOK
	}
	for _, name := range s.Pending {
		statuses[name] = types.StatusWarning
	}
	for _, name := range s.Urgent {
		statuses[name] = types.StatusDanger
	}

	return types.ReportSummaryEvent{
		Type:          "report_summary",
		Timestamp:     now,
		TotalCalls:    s.TotalCalls,
		Beneficiaries: len(s.Beneficiaries),
		OnTrack:       len(s.OnTrack),
		Pending:       len(s.Pending),
		Urgent:        len(s.Urgent),
		Alerts:        Check(statuses, s.LastSuccessful, now),
	}
}

func message(beneficiary string, lastSuccessful map[string]types.CallSnapshot, now time.Time) string {
	last, ok := lastSuccessful[beneficiary]
	if !ok {
		return "sin contacto exitoso registrado"
	}

	ts, err := time.Parse(time.RFC3339, last.Date)
	if err != nil {
		return "sin contacto exitoso registrado"
	}

	days := int(now.Sub(ts).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("sin contacto exitoso hace %dd", days)
}
