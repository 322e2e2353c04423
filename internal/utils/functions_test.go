package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineJobType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/file.zip", "http"},
		{"http://mirror.example.org/iso/distro.iso", "http"},
		{"s3://mybucket/path/key.tar.gz", "s3"},
		{"https://github.com/owner/repo/releases", "ghrelease"},
		{"https://github.com/owner/repo.git", "gitclone"},
		{"https://gitlab.com/owner/repo.git/", "gitclone"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DetermineJobType(tc.url), tc.url)
	}
}

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs([]string{
		"Authorization: Bearer abc123",
		"X-Custom:value",
		"malformed-no-colon",
	})
	assert.Equal(t, "Bearer abc123", headers["Authorization"])
	assert.Equal(t, "value", headers["X-Custom"])
	assert.Len(t, headers, 2)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "1.50 MB", FormatBytes(1536*1024))
	assert.Equal(t, "2.00 GB", FormatBytes(2*1024*1024*1024))
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "file.zip")
	require.NoError(t, os.WriteFile(original, []byte("x"), 0644))

	renewed := RenewOutputPath(original)
	assert.Equal(t, filepath.Join(dir, "file-(1).zip"), renewed)

	require.NoError(t, os.WriteFile(renewed, []byte("x"), 0644))
	assert.Equal(t, filepath.Join(dir, "file-(2).zip"), RenewOutputPath(original))
}

func TestReadJobList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.yaml")
	content := `- link: https://example.com/a.zip
  op: a.zip
- link: s3://bucket/key.bin
- link: github.com/owner/repo.git
  type: gitclone
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	entries, err := ReadJobList(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "http", entries[0].Type)
	assert.Equal(t, "a.zip", entries[0].OutputPath)
	assert.Equal(t, "s3", entries[1].Type)
	assert.Equal(t, "gitclone", entries[2].Type)
}

func TestReadJobListErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadJobList(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0644))
	_, err = ReadJobList(empty)
	assert.Error(t, err)

	noLink := filepath.Join(dir, "nolink.yaml")
	require.NoError(t, os.WriteFile(noLink, []byte("- op: out.zip\n"), 0644))
	_, err = ReadJobList(noLink)
	assert.ErrorContains(t, err, "no link")
}
