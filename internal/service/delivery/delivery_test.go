package delivery

import "testing"

func TestFormatLabel(t *testing.T) {
	tests := []struct {
		purpose string
		want    string
	}{
		{"verification", "Verification"},
		{"password_reset", "Password Reset"},
		{"login", "Login"},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			if got := formatLabel(tt.purpose); got != tt.want {
				t.Errorf("formatLabel(%q) = %q, want %q", tt.purpose, got, tt.want)
			}
		})
	}
}
