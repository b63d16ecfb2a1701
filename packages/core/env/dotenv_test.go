package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDotEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "plain values",
			content: "REPORT_DIR=out\nBROWSER=chrome",
			want:    map[string]string{"REPORT_DIR": "out", "BROWSER": "chrome"},
		},
		{
			name:    "export prefix and padding",
			content: "export  HITREPORT_ENVIRONMENT = staging  ",
			want:    map[string]string{"HITREPORT_ENVIRONMENT": "staging"},
		},
		{
			name:    "quoted values",
			content: "NAME=\"Nightly run\"\nPATTERN='a # b'",
			want:    map[string]string{"NAME": "Nightly run", "PATTERN": "a # b"},
		},
		{
			name:    "escaped newline in double quotes",
			content: `FOOTER="line one\nline two"`,
			want:    map[string]string{"FOOTER": "line one\nline two"},
		},
		{
			name:    "inline comment after unquoted value",
			content: "HITREPORT_CONCURRENCY=8 # CI runners have 8 cores",
			want:    map[string]string{"HITREPORT_CONCURRENCY": "8"},
		},
		{
			name:    "equals sign and hash inside value",
			content: "WEBHOOK=https://hooks.slack.com/x?a=b#frag",
			want:    map[string]string{"WEBHOOK": "https://hooks.slack.com/x?a=b#frag"},
		},
		{
			name:    "comments and blank lines",
			content: "# header\n\n\n# another\nKEY=v",
			want:    map[string]string{"KEY": "v"},
		},
		{
			name:    "empty",
			content: "",
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDotEnv(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDotEnv_Errors(t *testing.T) {
	_, err := ParseDotEnv(strings.NewReader("OK=1\nnot a pair"))
	assert.EqualError(t, err, "line 2: expected KEY=value")

	_, err = ParseDotEnv(strings.NewReader("# c\n1BAD=x"))
	assert.EqualError(t, err, `line 2: invalid key "1BAD"`)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("bad key=1"), 0644))

	_, err := LoadDotEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadAndExportDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HITREPORT_TEST_NEW=from-file\nHITREPORT_TEST_SET=from-file"), 0644))

	t.Setenv("HITREPORT_TEST_SET", "from-env")
	t.Setenv("HITREPORT_TEST_NEW", "")
	os.Unsetenv("HITREPORT_TEST_NEW")

	vars, err := LoadAndExportDotEnv(path)
	require.NoError(t, err)
	assert.Len(t, vars, 2)
	assert.Equal(t, "from-file", os.Getenv("HITREPORT_TEST_NEW"))
	assert.Equal(t, "from-env", os.Getenv("HITREPORT_TEST_SET"), "process environment wins")
}

func TestLoadDotEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HITREPORT_TEST_DIR=base\nHITREPORT_TEST_ONLY=base"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("HITREPORT_TEST_DIR=local"), 0644))

	for _, k := range []string{"HITREPORT_TEST_DIR", "HITREPORT_TEST_ONLY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	loaded, err := LoadDotEnvFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")}, loaded)
	assert.Equal(t, "local", os.Getenv("HITREPORT_TEST_DIR"), ".env.local overrides .env")
	assert.Equal(t, "base", os.Getenv("HITREPORT_TEST_ONLY"))

	loaded, err = LoadDotEnvFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
