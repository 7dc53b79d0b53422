package utils

import "testing"

func TestFingerprintNormalization(t *testing.T) {
	f := NewFingerprinter()

	base := f.Fingerprint("console.log(1);\nconsole.log(2);")

	tests := []struct {
		name   string
		source string
		same   bool
	}{
		{"identical", "console.log(1);\nconsole.log(2);", true},
		{"crlf line endings", "console.log(1);\r\nconsole.log(2);", true},
		{"outer whitespace", "\n  console.log(1);\nconsole.log(2);  \n", true},
		{"different source", "console.log(1);\nconsole.log(3);", false},
		{"inner whitespace matters", "console.log(1);\n console.log(2);", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Fingerprint(tt.source)
			if (got == base) != tt.same {
				t.Errorf("Fingerprint(%q) = %s, base = %s, want same=%v", tt.source, got, base, tt.same)
			}
		})
	}
}

func TestFingerprintShape(t *testing.T) {
	got := NewFingerprinter().Fingerprint("let x = 1;")
	if len(got) != 64 {
		t.Errorf("Fingerprint length = %d, want 64 hex chars", len(got))
	}
}
