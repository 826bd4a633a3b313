package location_test

import (
	"testing"

	"extendwork/recommend-service/internal/location"
)

func TestParseMapping(t *testing.T) {
	raw := "```json\n" + `{"countries": {"Warsaw": "PL", "Berlin": "de", "Narnia": null}, "primary": "pl"}` + "\n```"

	m, err := location.ParseMapping(raw)
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}
	if m.Countries["Warsaw"] != "pl" {
		t.Errorf("expected Warsaw -> pl, got %q", m.Countries["Warsaw"])
	}
	if m.Countries["Berlin"] != "de" {
		t.Errorf("expected Berlin -> de, got %q", m.Countries["Berlin"])
	}
	if _, ok := m.Countries["Narnia"]; ok {
		t.Error("null code should be dropped from the mapping")
	}
	if m.Primary != "pl" {
		t.Errorf("expected primary pl, got %q", m.Primary)
	}
}

func TestParseMapping_InvalidCodeDropped(t *testing.T) {
	m, err := location.ParseMapping(`{"countries": {"Somewhere": "XXL"}, "primary": "Poland"}`)
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}
	if len(m.Countries) != 0 {
		t.Errorf("non-2-letter code should be dropped, got %v", m.Countries)
	}
	if m.Primary != "" {
		t.Errorf("non-2-letter primary should be dropped, got %q", m.Primary)
	}
}

func TestParseMapping_Garbage(t *testing.T) {
	if _, err := location.ParseMapping("no json here"); err == nil {
		t.Error("expected error for non-JSON reply")
	}
}
