// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "plain assignments",
			content: "WORKSPACE_PATH=/srv/signage/WORKSPACE\nSIGNAGE_LOG_LEVEL=debug\n",
			want: map[string]string{
				"WORKSPACE_PATH":    "/srv/signage/WORKSPACE",
				"SIGNAGE_LOG_LEVEL": "debug",
			},
		},
		{
			name:    "comments blanks and malformed lines",
			content: "# workspace\n\nnot an assignment\n= novalue\nBAD KEY=x\nA=1\n",
			want:    map[string]string{"A": "1"},
		},
		{
			name:    "quotes export and trailing comment",
			content: "export A=\"two words\"\nB='#not comment'\nC=value # note\nD=\n",
			want: map[string]string{
				"A": "two words",
				"B": "#not comment",
				"C": "value",
				"D": "",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), ".env", tt.content)
			got, err := Parse(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	got, err := Parse(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadKeepsExistingEnv(t *testing.T) {
	t.Setenv("SIGNAGE_TEST_KEEP", "from-env")
	os.Unsetenv("SIGNAGE_TEST_NEW")
	t.Cleanup(func() { os.Unsetenv("SIGNAGE_TEST_NEW") })

	path := writeFile(t, t.TempDir(), ".env", "SIGNAGE_TEST_KEEP=from-file\nSIGNAGE_TEST_NEW=added\n")
	set, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SIGNAGE_TEST_NEW"}, set)
	assert.Equal(t, "from-env", os.Getenv("SIGNAGE_TEST_KEEP"))
	assert.Equal(t, "added", os.Getenv("SIGNAGE_TEST_NEW"))
}
