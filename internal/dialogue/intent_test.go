package dialogue

import (
	"testing"

	"voice-campaign/internal/script"
	"voice-campaign/pkg/models"
)

func defaultTable(t *testing.T) *IntentTable {
	t.Helper()
	table, err := NewIntentTable(script.Default().Intents)
	if err != nil {
		t.Fatalf("NewIntentTable: %v", err)
	}
	return table
}

func TestDefaultIntents(t *testing.T) {
	table := defaultTable(t)
	tests := []struct {
		text string
		want Intent
	}{
		{"No me interesa, gracias", IntentDecline},
		{"no me interesa", IntentDecline},
		{"Vale, adiós", IntentDecline},
		{"ADIÓS", IntentDecline},
		{"bueno, chao", IntentDecline},
		{"Hasta luego.", IntentDecline},
		{"voy a colgar", IntentDecline},
		{"sí, me interesa", IntentInterest},
		{"de acuerdo", IntentInterest},
		{"¿cuánto cuesta?", IntentNone},
		{"chaotico", IntentNone},
		{"", IntentNone},
	}
	for _, tt := range tests {
		got, _, _ := table.Match(tt.text)
		if got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestIntentOperators(t *testing.T) {
	table, err := NewIntentTable([]models.IntentRule{
		{Name: "exact", Operator: "equals", Pattern: "no", Intent: "decline"},
		{Name: "prefix", Operator: "starts_with", Pattern: "quiero", Intent: "interest"},
		{Name: "number", Operator: "regex", Pattern: `\d{3} ?euros`, Intent: "interest"},
		{Name: "sub", Operator: "contains", Pattern: "BAJA", Intent: "decline"},
	})
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]Intent{
		" No ":                  IntentDecline,
		"no sé":                 IntentNone,
		"Quiero saber más":      IntentInterest,
		"pago 120 euros al mes": IntentInterest,
		"quiero darme de baja":  IntentInterest,
		"me doy de baja":        IntentDecline,
	}
	for text, want := range tests {
		if got, _, _ := table.Match(text); got != want {
			t.Errorf("Match(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestIntentFirstMatchWins(t *testing.T) {
	table, err := NewIntentTable([]models.IntentRule{
		{Name: "a", Operator: "contains", Pattern: "interesa", Intent: "interest"},
		{Name: "b", Operator: "phrase", Pattern: "no me interesa", Intent: "decline"},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, rule, ok := table.Match("no me interesa")
	if !ok || rule.Name != "a" {
		t.Fatalf("expected first rule to win, got %+v", rule)
	}
}

func TestNewIntentTableRejectsBadRules(t *testing.T) {
	bad := [][]models.IntentRule{
		{{Name: "x", Operator: "fuzzy", Pattern: "a", Intent: "decline"}},
		{{Name: "x", Operator: "regex", Pattern: "(", Intent: "decline"}},
		{{Name: "x", Operator: "phrase", Pattern: " | ", Intent: "decline"}},
	}
	for i, rules := range bad {
		if _, err := NewIntentTable(rules); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestClosingMarkers(t *testing.T) {
	markers := ClosingMarkers(script.Default().ClosingMarkers)
	tests := []struct {
		text string
		want models.Outcome
		ok   bool
	}{
		{"Le contactará su asesor asignado en 72 horas.", models.OutcomeAccepted, true},
		{"Muchas gracias, hasta luego.", models.OutcomeAccepted, true},
		{"Muchas gracias por la recomendación, hasta luego.", models.OutcomeReferral, true},
		{"¿Cuánto paga al mes?", models.OutcomeUndecided, false},
	}
	for _, tt := range tests {
		got, ok := markers.Match(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Match(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}
