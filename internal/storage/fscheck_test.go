package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFS(name string) fsDetector {
	return func(string) (string, error) { return name, nil }
}

func TestCheckLocalFilesystem(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "snapshots.db")

	require.NoError(t, checkLocalFilesystem(dbPath, fixedFS("apfs")))

	err := checkLocalFilesystem(dbPath, fixedFS("smbfs"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smbfs")
	assert.Contains(t, err.Error(), "store.path")

	assert.Error(t, checkLocalFilesystem("", fixedFS("apfs")))
}

func TestCheckLocalFilesystemSkipsUnsupportedDetection(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	err := checkLocalFilesystem(dbPath, func(string) (string, error) { return "", errDetectUnsupported })
	assert.NoError(t, err)

	err = checkLocalFilesystem(dbPath, func(string) (string, error) { return "", errors.New("boom") })
	assert.ErrorContains(t, err, "boom")
}

func TestCheckLocalFilesystemInspectsClosestExisting(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "nested", "dir", "snapshots.db")

	var inspected string
	err := checkLocalFilesystem(dbPath, func(path string) (string, error) {
		inspected = path
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, inspected)
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fs   string
		want bool
	}{
		{fs: "nfs", want: true},
		{fs: " SMBFS ", want: true},
		{fs: "apfs", want: false},
		{fs: "0x6969", want: false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isNetworkFilesystem(tc.fs), tc.fs)
	}
}
