package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestResolve_Precedence(t *testing.T) {
	dir := t.TempDir()
	dotenv := writeFile(t, dir, ".env", "INSTANTHOST_API_KEY=from-dotenv\nOTHER=x\n")
	creds := writeFile(t, dir, "credentials", "  from-file\n")

	tests := []struct {
		name     string
		resolver Resolver
		want     Credential
	}{
		{
			name:     "explicit wins",
			resolver: Resolver{Explicit: "from-flag", EnvValue: "from-env", DotEnvFile: dotenv, CredentialsFile: creds},
			want:     Credential{Key: "from-flag", Source: SourceFlag},
		},
		{
			name:     "env before files",
			resolver: Resolver{EnvValue: "from-env", DotEnvFile: dotenv, CredentialsFile: creds},
			want:     Credential{Key: "from-env", Source: SourceEnv},
		},
		{
			name:     "dotenv before credentials file",
			resolver: Resolver{DotEnvFile: dotenv, CredentialsFile: creds},
			want:     Credential{Key: "from-dotenv", Source: SourceDotEnv},
		},
		{
			name:     "credentials file trimmed",
			resolver: Resolver{DotEnvFile: filepath.Join(dir, "missing.env"), CredentialsFile: creds},
			want:     Credential{Key: "from-file", Source: SourceFile},
		},
		{
			name:     "blank explicit ignored",
			resolver: Resolver{Explicit: "   ", CredentialsFile: creds},
			want:     Credential{Key: "from-file", Source: SourceFile},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolver.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_CustomEnvNameInDotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := writeFile(t, dir, ".env", "MY_KEY=abc\n")

	got, err := Resolver{EnvName: "MY_KEY", DotEnvFile: dotenv}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Key)
}

func TestResolve_NothingIsAnonymous(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "credentials", "\n")

	_, err := Resolver{CredentialsFile: empty, DotEnvFile: filepath.Join(dir, ".env")}.Resolve()
	assert.True(t, errors.Is(err, ErrNoCredentials))

	_, err = Resolver{}.Resolve()
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestSaveReadRemove(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "credentials")

	require.NoError(t, Save(p, " key-123 "))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	key, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, "key-123", key)

	existed, err := Remove(p)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = Remove(p)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = Read(p)
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestSave_RejectsEmptyKey(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c"), "  "))
}

func TestCredential_Prefix(t *testing.T) {
	assert.Equal(t, "abcdefgh", Credential{Key: "abcdefghijkl"}.Prefix())
	assert.Equal(t, "abc", Credential{Key: "abc"}.Prefix())
}
