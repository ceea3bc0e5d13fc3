package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateMessageContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", "Hello", false},
		{"empty", "", true},
		{"whitespace only", "   \n\t", true},
		{"too long", strings.Repeat("a", 100001), true},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
		{"unicode", "سلام دنیا", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessageContent(tc.content)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMessageContent(%q) = %v, wantErr %v", tc.content, err, tc.wantErr)
			}
		})
	}
}

func TestValidateChatID(t *testing.T) {
	if err := ValidateChatID(uuid.Must(uuid.NewV7()).String()); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
	for _, id := range []string{"", "not-a-uuid", "1234"} {
		if err := ValidateChatID(id); err == nil {
			t.Errorf("ValidateChatID(%q) = nil, want error", id)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Trip planning"); err != nil {
		t.Errorf("valid title rejected: %v", err)
	}
	for _, title := range []string{"", "   ", strings.Repeat("x", 257)} {
		if err := ValidateTitle(title); err == nil {
			t.Errorf("ValidateTitle(%q) = nil, want error", title)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("hunter2"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	for _, pw := range []string{"", "  ", strings.Repeat("x", 257)} {
		if err := ValidatePassword(pw); err == nil {
			t.Errorf("ValidatePassword(%q) = nil, want error", pw)
		}
	}
}
