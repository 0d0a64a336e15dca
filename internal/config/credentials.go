package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolvePassword fills in the database password when the config file left
// it blank, using the standard PostgreSQL fallback chain:
//  1. .pgpass file ($PGPASSFILE or ~/.pgpass)
//  2. the PGPASSWORD environment variable
func ResolvePassword(db *DatabaseConfig) error {
	if db.Password != "" {
		return nil
	}

	if pw, err := passwordFromPgpass("", db); err == nil {
		db.Password = pw
		return nil
	}

	if pw := os.Getenv("PGPASSWORD"); pw != "" {
		db.Password = pw
		return nil
	}

	return fmt.Errorf("no database password in config, .pgpass or PGPASSWORD")
}

// passwordFromPgpass looks the connection up in a .pgpass file. The file
// format is hostname:port:database:username:password, one entry per line,
// with * matching any value. PostgreSQL requires 0600 permissions on the
// file and so do we.
func passwordFromPgpass(path string, db *DatabaseConfig) (string, error) {
	if path == "" {
		path = os.Getenv("PGPASSFILE")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".pgpass")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("no .pgpass file at %s: %w", path, err)
	}
	if info.Mode().Perm() != 0o600 {
		return "", fmt.Errorf(".pgpass file has permissions %o, must be 0600", info.Mode().Perm())
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open .pgpass file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 5 {
			continue
		}

		if matchField(db.Host, parts[0]) &&
			matchField(strconv.Itoa(db.Port), parts[1]) &&
			matchField(db.Name, parts[2]) &&
			matchField(db.User, parts[3]) {
			return parts[4], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading .pgpass file: %w", err)
	}

	return "", fmt.Errorf("no matching .pgpass entry for %s:%d/%s/%s",
		db.Host, db.Port, db.Name, db.User)
}

func matchField(value, pattern string) bool {
	return pattern == "*" || value == pattern
}
