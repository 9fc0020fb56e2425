package alerts

import (
	"testing"
	"time"

	"teleasistencia-backend/internal/types"
)

func TestCheck(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	statuses := map[string]types.FollowUpStatus{
		"ana soto":   types.StatusOK,
		"juan perez": types.StatusWarning,
		"rosa lagos": types.StatusDanger,
		"luis mora":  types.StatusDanger,
	}
	lastSuccessful := map[string]types.CallSnapshot{
		"juan perez": {Date: "2024-01-12T10:00:00Z"},
		"rosa lagos": {Date: "2023-12-01T09:00:00Z"},
	}

	alerts := Check(statuses, lastSuccessful, now)

	if len(alerts) != 3 {
		t.Fatalf("alerts = %d, want 3 (up-to-date beneficiaries excluded)", len(alerts))
	}

	// Critical alerts sort first, alphabetically within severity.
	if alerts[0].Beneficiary != "luis mora" || alerts[0].Severity != types.SeverityCritical {
		t.Errorf("alerts[0] = %+v", alerts[0])
	}
	if alerts[1].Beneficiary != "rosa lagos" || alerts[1].Severity != types.SeverityCritical {
		t.Errorf("alerts[1] = %+v", alerts[1])
	}
	if alerts[2].Beneficiary != "juan perez" || alerts[2].Severity != types.SeverityWarning {
		t.Errorf("alerts[2] = %+v", alerts[2])
	}

	if alerts[0].Message != "sin contacto exitoso registrado" {
		t.Errorf("no-success message = %q", alerts[0].Message)
	}
	if alerts[1].Message != "sin contacto exitoso hace 62d" {
		t.Errorf("aged message = %q", alerts[1].Message)
	}
	if alerts[2].Message != "sin contacto exitoso hace 20d" {
		t.Errorf("warning message = %q", alerts[2].Message)
	}
}

func TestCheckEmpty(t *testing.T) {
	alerts := Check(nil, nil, time.Now())
	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none", alerts)
	}
}

func TestSummaryEvent(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snapshot := &types.ReportSnapshot{
		TotalCalls:    10,
		Beneficiaries: []string{"a", "b", "c"},
		OnTrack:       []string{"a"},
		Pending:       []string{"b"},
		Urgent:        []string{"c"},
		LastSuccessful: map[string]types.CallSnapshot{
			"b": {Date: "2024-01-12T10:00:00Z"},
		},
	}

	event := SummaryEvent(snapshot, now)

	if event.Type != "report_summary" {
		t.Errorf("type = %q", event.Type)
	}
	if event.OnTrack != 1 || event.Pending != 1 || event.Urgent != 1 {
		t.Errorf("partition counts wrong: %+v", event)
	}
	if len(event.Alerts) != 2 {
		t.Fatalf("alerts = %v, want pending and urgent entries", event.Alerts)
	}
	// Critical sorts first.
	if event.Alerts[0].Beneficiary != "c" || event.Alerts[1].Beneficiary != "b" {
		t.Errorf("alert order = %+v", event.Alerts)
	}
}
