package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersion(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"1.1", true},
		{"1.1~test412+other", true},
		{"0", true},
		{"1.1-test", false},
		{"1.1:test", false},
		{"1.1!test", false},
		{"a1.1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := NewVersion(tt.in)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrControlDataInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, v.String())
		})
	}
}

func TestNewFullVersion(t *testing.T) {
	v, err := NewFullVersion("1.1", "45~5", 2)
	require.NoError(t, err)
	assert.Equal(t, "2:1.1-45~5", v.String())
	assert.Equal(t, 2, v.Epoch())
	assert.Equal(t, "1.1", v.Upstream())
	assert.Equal(t, "45~5", v.Revision())

	v, err = NewFullVersion("1.1", "3", 0)
	require.NoError(t, err)
	assert.Equal(t, "1.1-3", v.String(), "a zero epoch is not rendered")

	_, err = NewFullVersion("1.1", "45-5", 0)
	assert.ErrorIs(t, err, ErrControlDataInvalid)

	_, err = NewFullVersion("1.1", "45:5", 0)
	assert.ErrorIs(t, err, ErrControlDataInvalid)

	_, err = NewFullVersion("1.1", "", -1)
	assert.ErrorIs(t, err, ErrControlDataInvalid)
}

func TestParseVersion(t *testing.T) {
	for _, s := range []string{"1.1", "2:1.1-45~5", "1:0.9", "3.0-1"} {
		v, err := ParseVersion(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, v.String())
	}

	v, err := ParseVersion("0:1.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0", v.String())

	for _, s := range []string{"x:1.0", "-1:1.0", "1.0-", "1.0-a-b", ":1.0"} {
		_, err := ParseVersion(s)
		assert.ErrorIs(t, err, ErrControlDataInvalid, s)
	}
}
