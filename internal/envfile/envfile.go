// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package envfile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set in the environment are left alone.
//
// Recognized keys include WORKSPACE_PATH and any SIGNAGE_* setting.
package envfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Parse reads path and returns its assignments. A missing file is not an
// error; Parse returns an empty map. Blank lines, comments and lines
// without '=' are skipped.
func Parse(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	vars := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

// Load parses path and sets every variable that is not already present in
// the environment. It returns the keys it set.
func Load(path string) ([]string, error) {
	vars, err := Parse(path)
	if err != nil {
		return nil, err
	}
	var set []string
	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return set, fmt.Errorf("setting %s: %w", k, err)
		}
		set = append(set, k)
	}
	return set, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	// Unquoted values may carry a trailing comment.
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}
