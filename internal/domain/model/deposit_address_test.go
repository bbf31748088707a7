package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"0X55D398326F99059FF775485246999027B3197955", "0x55d398326f99059ff775485246999027b3197955"},
		{" 0xabc ", "0xabc"},
		{"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"},
		{"0x", "0x"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalAddress(tt.in), tt.in)
	}
}
