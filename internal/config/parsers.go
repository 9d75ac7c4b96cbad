// Package config provides configuration loading and parsing for harfire.
package config

import (
	"fmt"
	"strings"
)

// parsePairs converts "key=value" flag entries into a map. Later entries win
// on duplicate keys.
func parsePairs(entries []string, flagName string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	pairs := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --%s %q: expected key=value", flagName, entry)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// parseMultiPairs converts repeatable "key=value" entries into a multimap,
// preserving every occurrence of a repeated key.
func parseMultiPairs(entries []string, flagName string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	pairs := make(map[string][]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --%s %q: expected key=value", flagName, entry)
		}
		pairs[key] = append(pairs[key], value)
	}
	return pairs, nil
}
