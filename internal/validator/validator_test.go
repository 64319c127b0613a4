package validator

import "testing"

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid simple", "example.com", true},
		{"valid subdomain", "shop.example.co.uk", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"no dot", "examplecom", false},
		{"non-ascii cyrillic", "бад.com", false},
		{"trailing underscore label", "bad_.com", false},
		{"empty label", "example..com", false},
		{"replacement char", "exa�mple.com", false},
		{"leading/trailing space trimmed then valid", "  example.com  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	xs := []string{"good.com", "бад.com", "bad_.com", "ok.co.uk"}
	valid, invalid := Filter(xs)

	wantValid := []string{"good.com", "ok.co.uk"}
	wantInvalid := []string{"бад.com", "bad_.com"}

	if len(valid) != len(wantValid) {
		t.Fatalf("valid = %v, want %v", valid, wantValid)
	}
	for i, v := range wantValid {
		if valid[i] != v {
			t.Errorf("valid[%d] = %q, want %q", i, valid[i], v)
		}
	}

	if len(invalid) != len(wantInvalid) {
		t.Fatalf("invalid = %v, want %v", invalid, wantInvalid)
	}
}

func TestFilterIdempotent(t *testing.T) {
	xs := []string{"good.com", "бад.com", "ok.co.uk", "bad_.com"}
	valid1, _ := Filter(xs)
	valid2, invalid2 := Filter(valid1)

	if len(invalid2) != 0 {
		t.Errorf("second filter pass produced invalid entries: %v", invalid2)
	}
	if len(valid1) != len(valid2) {
		t.Errorf("filter not idempotent: %v != %v", valid1, valid2)
	}
}
