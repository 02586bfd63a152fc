// SPDX-License-Identifier: MIT
package bars

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestParseDistribution(t *testing.T) {
	tests := []struct {
		in      string
		want    Distribution
		wantErr bool
	}{
		{"", Uniform, false},
		{"Uniform", Uniform, false},
		{" natural ", Natural, false},
		{"log", Uniform, true},
	}
	for _, tt := range tests {
		got, err := ParseDistribution(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseDistribution(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParsePaddingSide(t *testing.T) {
	tests := []struct {
		in      string
		want    PaddingSide
		wantErr bool
	}{
		{"left", PaddingLeft, false},
		{"RIGHT", PaddingRight, false},
		{"both", PaddingBoth, false},
		{"top", PaddingBoth, true},
	}
	for _, tt := range tests {
		got, err := ParsePaddingSide(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParsePaddingSide(%q) = %v, %v", tt.in, got, err)
		}
	}
}
