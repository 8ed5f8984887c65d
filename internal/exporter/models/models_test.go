package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSharingScope(t *testing.T) {
	s, err := ParseSharingScope("all_qualified_researchers")
	require.NoError(t, err)
	assert.Equal(t, SharingAllQualifiedResearchers, s)
	assert.True(t, s.Shares())
	assert.Equal(t, "all_qualified_researchers", s.CatalogName())

	s, err = ParseSharingScope("NO_SHARING")
	require.NoError(t, err)
	assert.False(t, s.Shares())

	_, err = ParseSharingScope("everyone")
	assert.Error(t, err)
}

func TestAnnotations_Flatten(t *testing.T) {
	a := Annotations{
		"participantVersion": LongValue(3),
		"recordId":           StringValue("u-1"),
	}
	assert.Equal(t, map[string]string{"participantVersion": "3", "recordId": "u-1"}, a.Flatten())
}

func TestArchiveEntry_Locator(t *testing.T) {
	e := &ArchiveEntry{ID: "e", FolderID: "f", Bucket: "b", Key: "k"}
	assert.Equal(t, ArchiveLocator{EntryID: "e", FolderID: "f", Bucket: "b", Key: "k"}, e.Locator())
	assert.False(t, e.Locator().IsZero())
	assert.True(t, ArchiveLocator{}.IsZero())
}

func TestMetadata_GetLastWins(t *testing.T) {
	m := Metadata{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "a", Value: "3"}}
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = m.Get("c")
	assert.False(t, ok)
}

func TestMetadataFromMap_SortsKeys(t *testing.T) {
	m := MetadataFromMap(map[string]string{"z": "1", "a": "2"})
	assert.Equal(t, Metadata{{Key: "a", Value: "2"}, {Key: "z", Value: "1"}}, m)
}
