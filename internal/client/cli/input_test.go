package cli

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSecret_Piped(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSecret(strings.NewReader("  key-abc  \n"), "API key", &out)
	require.NoError(t, err)
	assert.Equal(t, "key-abc", got)
}

func stubTerminal(t *testing.T, pw []byte, err error) {
	t.Helper()
	oldRead, oldTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = oldRead, oldTerm })
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return pw, err }
}

func TestGetSecret_TerminalHidesInput(t *testing.T) {
	stubTerminal(t, []byte("secret\n"), nil)
	var out bytes.Buffer
	got, err := GetSecret(os.Stdin, "API key", &out)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
	assert.Equal(t, "API key: \n", out.String())
}

func TestGetSecret_TerminalError(t *testing.T) {
	stubTerminal(t, nil, errors.New("boom"))
	var out bytes.Buffer
	_, err := GetSecret(os.Stdin, "API key", &out)
	if err == nil {
		t.Fatal("expected error")
	}
}
