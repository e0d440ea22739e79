package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyString(t *testing.T) {
	d, err := NewDependency("otherpkg")
	require.NoError(t, err)
	assert.Equal(t, "otherpkg", d.String())

	d, err = NewVersionedDependency("other_pkg", RelationLaterOrEqual, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "other_pkg (>= 1.0)", d.String())
	assert.Equal(t, RelationLaterOrEqual, d.Relation())

	for _, rel := range []Relation{RelationEarlier, RelationEarlierOrEqual, RelationEqual, RelationLater} {
		d, err := NewVersionedDependency("pkg", rel, "2:1.1-3")
		require.NoError(t, err)
		assert.Equal(t, "pkg ("+string(rel)+" 2:1.1-3)", d.String())
	}
}

func TestDependencyValidation(t *testing.T) {
	_, err := NewDependency("Bad Name")
	assert.ErrorIs(t, err, ErrControlDataInvalid)

	_, err = NewVersionedDependency("pkg", Relation("<"), "1.0")
	assert.ErrorIs(t, err, ErrControlDataInvalid)

	_, err = NewVersionedDependency("pkg", RelationEqual, "a1.0")
	assert.ErrorIs(t, err, ErrControlDataInvalid)
}

func TestParseDependency(t *testing.T) {
	tests := map[string]string{
		"otherpkg":            "otherpkg",
		"  libc6 ( >= 2.36 ) ": "libc6 (>= 2.36)",
		"libfoo:any (<< 3)":   "libfoo:any (<< 3)",
	}
	for in, want := range tests {
		d, err := ParseDependency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String())
	}

	for _, in := range []string{"", "pkg (>= )", "pkg >= 1.0", "pkg (~ 1.0)"} {
		_, err := ParseDependency(in)
		assert.Error(t, err, in)
	}
}

func TestAlternativesAndLists(t *testing.T) {
	a, err := ParseAlternatives("mail-transport-agent | exim4 (>= 4.0)")
	require.NoError(t, err)
	assert.Equal(t, "mail-transport-agent | exim4 (>= 4.0)", a.String())
	assert.Len(t, a.Dependencies(), 2)

	_, err = NewAlternatives()
	assert.ErrorIs(t, err, ErrControlDataInvalid)

	list, err := ParseRelationList("libc6 (>= 2.36), debconf | debconf-2.0")
	require.NoError(t, err)
	assert.Equal(t, "libc6 (>= 2.36), debconf | debconf-2.0", list.String())

	empty, err := ParseRelationList("")
	require.NoError(t, err)
	assert.Equal(t, "", empty.String())
}
