package normalize

import "testing"

func TestValidDNI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "valid dni", input: "12345678Z", want: true},
		{name: "wrong control letter", input: "12345678A", want: false},
		{name: "valid nie", input: "X1234567L", want: true},
		{name: "nie wrong letter", input: "X1234567T", want: false},
		{name: "too short", input: "1234567Z", want: false},
		{name: "empty", input: "", want: false},
		{name: "letters only", input: "ABCDEFGHI", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidDNI(tt.input); got != tt.want {
				t.Errorf("ValidDNI(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlausibleNSS(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "full twelve digits", input: "281234567890", want: true},
		{name: "leading zeros dropped", input: "12345678", want: true},
		{name: "too short", input: "1234567", want: false},
		{name: "too long", input: "1234567890123", want: false},
		{name: "non digit", input: "28123456789X", want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlausibleNSS(tt.input); got != tt.want {
				t.Errorf("PlausibleNSS(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	if !ValidEmail("ana.ruiz@example.com") {
		t.Error("expected valid email to pass")
	}
	if ValidEmail("sin-arroba.example.com") {
		t.Error("expected address without @ to fail")
	}
	if ValidEmail("a@b") {
		t.Error("expected address without dot in domain to fail")
	}
	if ValidEmail("") {
		t.Error("expected empty string to fail")
	}
}

func TestNumericID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOK bool
	}{
		{name: "positive id", input: "12345", want: 12345, wantOK: true},
		{name: "trimmed", input: " 7 ", want: 7, wantOK: true},
		{name: "zero means absent", input: "0", wantOK: false},
		{name: "negative means absent", input: "-3", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "not a number", input: "abc", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NumericID(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NumericID(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("NumericID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
