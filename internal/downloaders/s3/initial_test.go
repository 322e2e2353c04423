package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rauko1753/filch/internal/utils"
)

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url       string
		bucket    string
		key       string
		expectErr bool
	}{
		{"s3://mybucket/path/to/file.zip", "mybucket", "path/to/file.zip", false},
		{"mybucket/file.zip", "mybucket", "file.zip", false},
		{"mybucket", "mybucket", "", false},
		{"s3://", "", "", true},
	}
	for _, tc := range tests {
		bucket, key, err := parseS3URL(tc.url)
		if tc.expectErr {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.bucket, bucket)
		assert.Equal(t, tc.key, key)
	}
}

func TestValidateJobRejectsFolders(t *testing.T) {
	d := &S3Downloader{}

	job := &utils.FilchJob{URL: "s3://bucket/folder/", Metadata: make(map[string]any)}
	assert.ErrorContains(t, d.ValidateJob(job), "folder")

	job = &utils.FilchJob{URL: "s3://bucket", Metadata: make(map[string]any)}
	assert.Error(t, d.ValidateJob(job))

	job = &utils.FilchJob{URL: "s3://bucket/key.bin", Metadata: make(map[string]any)}
	require.NoError(t, d.ValidateJob(job))
	assert.Equal(t, "bucket", job.Metadata["bucket"])
	assert.Equal(t, "key.bin", job.Metadata["key"])
}
