package models

import "testing"

func TestEffectivePrice(t *testing.T) {
	line := OrderLine{
		Item: ItemSnapshot{Price: 70, SupplementPrice: 10},
	}
	if got := line.EffectivePrice(); got != 70 {
		t.Errorf("price with no additions = %v, want 70", got)
	}

	line.IngredientsAdded = []string{"sucre", "banane"}
	if got := line.EffectivePrice(); got != 90 {
		t.Errorf("price with two additions = %v, want 90", got)
	}

	// Removals never change the price.
	line.IngredientsRemoved = []string{"oeuf"}
	if got := line.EffectivePrice(); got != 90 {
		t.Errorf("price after removal = %v, want 90", got)
	}
}

func TestLocalizedNameGet(t *testing.T) {
	name := LocalizedName{"fr": "Crêpe sucre", "th": "เครปน้ำตาล"}

	if got := name.Get("fr"); got != "Crêpe sucre" {
		t.Errorf("Get(fr) = %q", got)
	}
	if got := name.Get("en"); got == "" {
		t.Error("Get with missing locale returned empty, want any fallback")
	}
	if got := (LocalizedName{}).Get("fr"); got != "" {
		t.Errorf("Get on empty name = %q, want empty", got)
	}
}
