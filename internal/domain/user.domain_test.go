package domain

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{
			name:  "plain ten digits",
			phone: "9876543210",
			want:  "9876543210",
		},
		{
			name:  "country code prefix",
			phone: "919876543210",
			want:  "9876543210",
		},
		{
			name:  "plus and country code",
			phone: "+91 98765 43210",
			want:  "9876543210",
		},
		{
			name:  "leading zero",
			phone: "09876543210",
			want:  "9876543210",
		},
		{
			name:  "formatting characters",
			phone: "(987) 654-3210",
			want:  "9876543210",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.phone); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name        string
		contact     string
		want        string
		wantChannel string
	}{
		{
			name:        "email lowercased",
			contact:     "  User@Example.COM ",
			want:        "user@example.com",
			wantChannel: ChannelEmail,
		},
		{
			name:        "phone normalized",
			contact:     "+91 98765 43210",
			want:        "9876543210",
			wantChannel: ChannelPhone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, channel := NormalizeContact(tt.contact)
			if got != tt.want || channel != tt.wantChannel {
				t.Errorf("NormalizeContact(%q) = (%q, %q), want (%q, %q)",
					tt.contact, got, channel, tt.want, tt.wantChannel)
			}
		})
	}
}
