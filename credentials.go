/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore maps account names to their secrets. It is loaded once at
// startup and read-only afterwards, so lookups need no synchronization.
type CredentialStore struct {
	secrets map[string]string
}

// LoadCredentials reads the credential source at path. Files with a SQLite
// extension are loaded from a users table; anything else is parsed as
// newline-delimited name:secret pairs.
func LoadCredentials(path string) (*CredentialStore, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return loadCredentialsSQLite(path)
	default:
		return loadCredentialsFile(path)
	}
}

func loadCredentialsFile(path string) (*CredentialStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	secrets := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		name, secret, found := strings.Cut(line, ":")
		if !found || name == "" {
			return nil, fmt.Errorf("malformed credential line %q", line)
		}
		secrets[name] = secret
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &CredentialStore{secrets: secrets}, nil
}

func loadCredentialsSQLite(path string) (*CredentialStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT name, secret FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	secrets := make(map[string]string)

	for rows.Next() {
		var name, secret string
		if err := rows.Scan(&name, &secret); err != nil {
			return nil, err
		}
		secrets[name] = secret
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &CredentialStore{secrets: secrets}, nil
}

// Verify reports whether the name/secret pair matches a known account.
// Secrets stored as bcrypt hashes are compared with bcrypt; plain secrets
// are compared in constant time.
func (s *CredentialStore) Verify(name, secret string) bool {
	stored, ok := s.secrets[name]
	if !ok {
		return false
	}

	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// Names returns every known account name, for pre-allocating players.
func (s *CredentialStore) Names() []string {
	names := make([]string, 0, len(s.secrets))
	for name := range s.secrets {
		names = append(names, name)
	}

	return names
}
