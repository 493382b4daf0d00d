package event

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    Name
		want    bool
	}{
		// Wildcard "*" matches everything.
		{"*", LeadCreated, true},
		{"*", UserUpdated, true},

		// Exact match.
		{"lead.created", LeadCreated, true},
		{"interaction.deleted", InteractionDeleted, true},

		// Exact mismatch.
		{"lead.created", LeadUpdated, false},
		{"lead.created", ProductCreated, false},

		// Single-segment wildcard.
		{"lead.*", LeadCreated, true},
		{"lead.*", LeadAssigned, true},
		{"lead.*", ProductCreated, false},
		{"*.created", LeadCreated, true},
		{"*.created", InteractionCreated, true},
		{"*.created", LeadAssigned, false},

		// Segment count mismatch.
		{"lead", LeadCreated, false},
		{"lead.*.extra", LeadCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+string(tt.name), func(t *testing.T) {
			got := Match(tt.pattern, tt.name)
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
			}
		})
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"lead.created", "interaction.*"}

	if !MatchAny(patterns, LeadCreated) {
		t.Error("expected lead.created to match")
	}
	if !MatchAny(patterns, InteractionUpdated) {
		t.Error("expected interaction.updated to match interaction.*")
	}
	if MatchAny(patterns, ProductDeleted) {
		t.Error("product.deleted should not match")
	}
	if MatchAny(nil, LeadCreated) {
		t.Error("no patterns should match nothing")
	}
}

func TestIsValid(t *testing.T) {
	for _, n := range All() {
		if !IsValid(n) {
			t.Errorf("IsValid(%q) = false, want true", n)
		}
	}
	if IsValid("lead.promoted") {
		t.Error("lead.promoted is not in the vocabulary")
	}
}

func TestValidPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"*", true},
		{"lead.created", true},
		{"lead.*", true},
		{"*.created", true},
		{"lead.promoted", false},
		{"invoice.*", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidPattern(tt.pattern); got != tt.want {
			t.Errorf("ValidPattern(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}
