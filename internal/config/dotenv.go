package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv reads a .env file and exports its entries into the process
// environment. Variables already set in the environment win, so a deploy
// override always beats the checked-in development file.
//
// Accepted line forms: `KEY=value`, `export KEY=value`, blank lines and
// `#` comments. Values may be single- or double-quoted; an unquoted value
// is cut at an inline `#`.
func LoadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err // missing file is fine, the caller decides
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		value = strings.TrimSpace(value)
		value = unquoteEnvValue(value)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// unquoteEnvValue strips one matching pair of quotes, or trims an inline
// comment from an unquoted value.
func unquoteEnvValue(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}
