package utils

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if len(id) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("GenerateID() returned length %d, want 32", len(id))
	}

	// 验证是有效的十六进制
	for _, c := range id {
		if !strings.ContainsAny(string(c), "0123456789abcdef") {
			t.Errorf("GenerateID() returned invalid hex character: %c", c)
		}
	}

	if id == GenerateID() {
		t.Error("GenerateID() returned same ID twice")
	}
}

func TestGenerateClientID(t *testing.T) {
	id := GenerateClientID()
	if !strings.HasPrefix(id, "client_") {
		t.Errorf("GenerateClientID() should start with 'client_', got %s", id)
	}
	if parts := strings.Split(id, "_"); len(parts) != 3 {
		t.Errorf("GenerateClientID() should have 3 parts, got %d", len(parts))
	}
}

func TestFormatTime(t *testing.T) {
	testTime := time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC)
	if got := FormatTime(testTime); got != "2024-01-15 14:30:45" {
		t.Errorf("FormatTime() = %s", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello..."},
		{"runes", "héllo wörld", 7, "héllo w..."},
		{"zero limit", "hello", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"valid", "Hi bob", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"max length", strings.Repeat("a", MaxMessageLength), true},
		{"too long", strings.Repeat("a", MaxMessageLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMessage(tt.content); got != tt.want {
				t.Errorf("ValidateMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}
