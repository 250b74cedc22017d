// internal/service/product/application/alert/engine_test.go
package alert

import (
	"testing"

	"stockledger/internal/service/product/domain"
)

func TestEngineMatches(t *testing.T) {
	engine, err := NewEngine([]string{
		"stock < 10",
		"delta < -50",
		"category == 'fragile' && stock < 100",
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	tests := []struct {
		name     string
		movement *domain.StockMovement
		want     []string
	}{
		{
			"low stock",
			&domain.StockMovement{Stock: 5, Delta: -1},
			[]string{"stock < 10"},
		},
		{
			"no rule hit",
			&domain.StockMovement{Stock: 50, Delta: 3},
			nil,
		},
		{
			"multiple rules hit",
			&domain.StockMovement{Stock: 4, Delta: -60, Category: "fragile"},
			[]string{"stock < 10", "delta < -50", "category == 'fragile' && stock < 100"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Matches(tt.movement)
			if len(got) != len(tt.want) {
				t.Fatalf("matched %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("matched[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEngineRejectsInvalidRule(t *testing.T) {
	if _, err := NewEngine([]string{"stock <"}); err == nil {
		t.Error("expected compile error for malformed rule")
	}
	if _, err := NewEngine([]string{"unknown_var > 3"}); err == nil {
		t.Error("expected compile error for unknown variable")
	}
}

func TestEngineRejectsNonBoolRule(t *testing.T) {
	if _, err := NewEngine([]string{"stock + 1"}); err == nil {
		t.Error("expected error for rule that does not evaluate to bool")
	}
}

func TestEngineWithoutRules(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := engine.Matches(&domain.StockMovement{Stock: 0}); got != nil {
		t.Errorf("matched %v, want nothing", got)
	}
}
