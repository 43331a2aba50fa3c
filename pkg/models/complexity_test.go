package models

import "testing"

func TestComplexity_Valid(t *testing.T) {
	tests := []struct {
		name string
		c    Complexity
		want bool
	}{
		{"low is valid", ComplexityLow, true},
		{"medium is valid", ComplexityMedium, true},
		{"high is valid", ComplexityHigh, true},
		{"unknown is not an assessed level", ComplexityUnknown, false},
		{"empty string is invalid", Complexity(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Valid(); got != tt.want {
				t.Errorf("Complexity(%q).Valid() = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		in   string
		want Complexity
	}{
		{"low", ComplexityLow},
		{" HIGH ", ComplexityHigh},
		{"complex", ComplexityHigh},
		{"medium", ComplexityMedium},
		{"", ComplexityMedium},
		{"whatever", ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseComplexity(tt.in); got != tt.want {
				t.Errorf("ParseComplexity(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	if got := ParseStrategy("research"); got != StrategyDecompose {
		t.Errorf("ParseStrategy(research) = %q, want %q", got, StrategyDecompose)
	}
	if got := ParseStrategy("direct"); got != StrategyDirect {
		t.Errorf("ParseStrategy(direct) = %q, want %q", got, StrategyDirect)
	}
	if got := ParseStrategy("???"); got != StrategyDirect {
		t.Errorf("ParseStrategy(???) = %q, want %q", got, StrategyDirect)
	}
}
