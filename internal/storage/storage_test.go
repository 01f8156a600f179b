package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
	"github.com/manu3618/reflecto/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *types.Result {
	sync := time.Date(2024, 4, 1, 8, 22, 54, 0, time.UTC)
	return &types.Result{
		Mirrors: []mirror.Mirror{
			{URL: "https://mirror.aarnet.edu.au/pub/archlinux/", Protocol: mirror.ProtocolHTTPS, LastSync: &sync},
		},
		Mirrorlist: "# Arch Linux mirror list generated by reflecto\n",
		Countries:  "Country Code Count",
		Stats:      types.Stats{TotalMirrors: 1, Retained: 1, SortedBy: "score"},
		Updated:    time.Now().UTC(),
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	s, err := NewFileStorage(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(sampleResult()))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Mirrors, 1)
	assert.Equal(t, "https://mirror.aarnet.edu.au/pub/archlinux/", got.Mirrors[0].URL)
	assert.Equal(t, 1, got.Stats.Retained)
}

func TestFileStorageLoadMissing(t *testing.T) {
	s, err := NewFileStorage(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(sampleResult()))

	got, err = s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Stats.TotalMirrors)
}

func TestNewStorageUnknownType(t *testing.T) {
	_, err := NewStorage("papyrus", "/tmp/x")
	assert.Error(t, err)
}
