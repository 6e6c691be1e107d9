package icd

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already canonical", "I219", "I219"},
		{"dotted", "I21.9", "I219"},
		{"lowercase", "e119", "E119"},
		{"padded", "  C50 ", "C50"},
		{"dotted lowercase", "m81.0", "M810"},
		{"covid", "U07.1", "U071"},
		{"three character", "C18", "C18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"no leading letter", "219I"},
		{"second char not digit", "IX21"},
		{"too long", "I2190001"},
		{"free text", "unknown"},
		{"punctuation", "I21-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.raw); !errors.Is(err, ErrMalformedCode) {
				t.Errorf("Normalize(%q) error = %v, want ErrMalformedCode", tt.raw, err)
			}
			if IsValid(tt.raw) {
				t.Errorf("IsValid(%q) = true, want false", tt.raw)
			}
		})
	}
}
