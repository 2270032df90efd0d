package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenMatches(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		valid     string
		want      bool
	}{
		{"Raw token", "secret", "secret", true},
		{"Bearer token", "Bearer secret", "secret", true},
		{"Empty bearer", "Bearer ", "secret", false},
		{"No configured token", "secret", "", false},
		{"Lowercase scheme", "bearer secret", "secret", false},
		{"Wrong token", "Bearer other", "secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenMatches(tt.presented, tt.valid))
		})
	}
}
