package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaintainer(t *testing.T) {
	m, err := NewMaintainer("Test Maintainer", "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Test Maintainer <test@example.com>", m.String())
	assert.Equal(t, "Test Maintainer", m.Name())
	assert.Equal(t, "test@example.com", m.Email())

	tests := []struct {
		name  string
		mname string
		email string
	}{
		{"period in name", "J. Random", "j@example.com"},
		{"empty name", " ", "j@example.com"},
		{"angle bracket in name", "Bad <name", "j@example.com"},
		{"double at", "Broken", "broken@@brokencom"},
		{"no domain dot", "Broken", "broken@brokencom"},
		{"display name", "Broken", "Other <other@example.com>"},
		{"empty email", "Broken", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMaintainer(tt.mname, tt.email)
			assert.ErrorIs(t, err, ErrControlDataInvalid)
		})
	}
}
