// Package validator implements the Domain Validator (spec.md §4.3):
// pre-enqueue filtering of LLM-generated candidate strings.
//
// Grounded in original_source/apps/api/src/api/utils.py's is_valid_domain /
// filter_valid_domains, with the IDNA-encodability check realized via
// golang.org/x/net/idna — the Go analogue of Python's domain.encode('idna').
package validator

import (
	"strings"

	"golang.org/x/net/idna"
)

const replacementChar = '�'

// IsValid reports whether s is a syntactically acceptable domain candidate:
// non-empty, ASCII-only, dotted, no empty labels, and IDNA-encodable.
func IsValid(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}

	for _, r := range trimmed {
		if r == replacementChar {
			return false
		}
		if r > 127 {
			return false
		}
	}

	if !strings.Contains(trimmed, ".") {
		return false
	}

	labels := strings.Split(trimmed, ".")
	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			return false
		}
	}

	if _, err := idna.Lookup.ToASCII(trimmed); err != nil {
		return false
	}

	return true
}

// Filter partitions xs into syntactically valid and invalid candidates,
// preserving input order within each partition.
func Filter(xs []string) (valid, invalid []string) {
	for _, x := range xs {
		if IsValid(x) {
			valid = append(valid, x)
		} else {
			invalid = append(invalid, x)
		}
	}
	return valid, invalid
}
