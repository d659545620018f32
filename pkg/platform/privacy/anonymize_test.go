package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"192.168.1.47", "192.168.1.0"},
		{"::ffff:10.0.0.9", "10.0.0.0"},
		{"2001:db8:85a3::8a2e:370:7334", "2001:db8:85a3::"},
		{"", "unknown"},
		{"not-an-ip", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@school.io", MaskEmail("ada@school.io"))
	assert.Equal(t, "***", MaskEmail("broken"))
}
