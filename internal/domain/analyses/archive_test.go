package analyses

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "policy.pdf", "policies/abc/policy.pdf"},
		{"spaces", "My Policy 2024.pdf", "policies/abc/My_Policy_2024.pdf"},
		{"unix traversal", "../../etc/passwd", "policies/abc/passwd"},
		{"windows path", `C:\Users\me\HO3.pdf`, "policies/abc/HO3.pdf"},
		{"empty", "", "policies/abc/policy.pdf"},
		{"only dots", "..", "policies/abc/policy.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArchiveKey("abc", tt.filename))
		})
	}
}
