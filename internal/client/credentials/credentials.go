// Package credentials resolves the API key used for authenticated publishes.
//
// Sources are consulted in order and the first non-empty value wins:
//
//  1. an explicit key (the --api-key flag),
//  2. the value of the API key environment variable, captured by the caller,
//  3. a dotenv file holding the same variable,
//  4. the credentials file written by "instanthost login".
//
// The resolver never reads the process environment itself; callers pass the
// captured value in so the lookup stays testable.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/instanthost/internal/common"
	"github.com/dmitrijs2005/instanthost/internal/filex"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
)

var ErrNoCredentials = errors.New("no API key configured")

// Source names where a key came from.
type Source string

const (
	SourceFlag   Source = "flag"
	SourceEnv    Source = "env"
	SourceDotEnv Source = "dotenv"
	SourceFile   Source = "file"
)

type Credential struct {
	Key    string
	Source Source
}

// Prefix returns the first eight characters of the key, for display.
func (c Credential) Prefix() string {
	if len(c.Key) <= 8 {
		return c.Key
	}
	return c.Key[:8]
}

type Resolver struct {
	Explicit        string
	EnvValue        string
	EnvName         string
	DotEnvFile      string
	CredentialsFile string
}

// Resolve returns the first key found. ErrNoCredentials means anonymous mode.
// A dotenv or credentials file that exists but cannot be read is an error.
func (r Resolver) Resolve() (Credential, error) {
	if k := strings.TrimSpace(r.Explicit); k != "" {
		return Credential{Key: k, Source: SourceFlag}, nil
	}
	if k := strings.TrimSpace(r.EnvValue); k != "" {
		return Credential{Key: k, Source: SourceEnv}, nil
	}

	if r.DotEnvFile != "" {
		k, err := r.fromDotEnv()
		if err != nil {
			return Credential{}, err
		}
		if k != "" {
			return Credential{Key: k, Source: SourceDotEnv}, nil
		}
	}

	if r.CredentialsFile != "" {
		k, err := Read(r.CredentialsFile)
		if err != nil && !errors.Is(err, ErrNoCredentials) {
			return Credential{}, err
		}
		if k != "" {
			return Credential{Key: k, Source: SourceFile}, nil
		}
	}

	return Credential{}, ErrNoCredentials
}

func (r Resolver) fromDotEnv() (string, error) {
	vars, err := godotenv.Read(r.DotEnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", r.DotEnvFile, err)
	}
	name := r.EnvName
	if name == "" {
		name = common.APIKeyEnvVar
	}
	return strings.TrimSpace(vars[name]), nil
}

// Read returns the trimmed contents of a credentials file.
func Read(path string) (string, error) {
	p, err := filex.ExpandHome(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoCredentials
		}
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrNoCredentials
	}
	return key, nil
}

// Save writes key to path with owner-only permissions, creating the parent
// directory if needed.
func Save(path, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty API key")
	}
	p, err := filex.ExpandHome(path)
	if err != nil {
		return err
	}
	if _, err := filex.EnsureParentDir(p); err != nil {
		return err
	}
	if err := atomic.WriteFile(p, strings.NewReader(key+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := os.Chmod(p, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	return nil
}

// Remove deletes the credentials file. It reports whether a file existed.
func Remove(path string) (bool, error) {
	p, err := filex.ExpandHome(path)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", p, err)
	}
	return true, nil
}
