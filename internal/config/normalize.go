package config

import "strings"

// normalizer provides type-safe string-to-enum normalization for config
// fields that accept free-form user input.
type normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

func newNormalizer[T comparable](values map[string]T, defaultValue T) *normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[cleanToken(k)] = v
	}
	return &normalizer[T]{values: normalized, defaultValue: defaultValue}
}

// normalize converts a raw string to the enum type, falling back to the
// default for unrecognized input.
func (n *normalizer[T]) normalize(raw string) T {
	if v, ok := n.values[cleanToken(raw)]; ok {
		return v
	}
	return n.defaultValue
}

func cleanToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
