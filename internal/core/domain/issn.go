package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ISSNSet is the allow-list of managed journal ISSNs. It is loaded once at
// startup and never mutated afterwards; any document whose journal ISSN is
// absent from the set is never touched.
type ISSNSet map[string]struct{}

// ParseISSNSet reads a line-delimited list of ISSNs. Blank lines are
// ignored; a line that is not a structurally valid ISSN is an error.
func ParseISSNSet(r io.Reader) (ISSNSet, error) {
	set := make(ISSNSet)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		issn := strings.TrimSpace(scanner.Text())
		if issn == "" {
			continue
		}
		if !IsValidISSN(issn) {
			return nil, fmt.Errorf("%w: line %d: %q is not a valid ISSN", ErrConfig, line, issn)
		}
		set[issn] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading ISSN list: %v", ErrConfig, err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: ISSN list is empty", ErrConfig)
	}
	return set, nil
}

// Contains reports whether issn is in the managed set.
func (s ISSNSet) Contains(issn string) bool {
	_, ok := s[issn]
	return ok
}

// ContainsAny reports whether any of the given ISSNs is managed.
func (s ISSNSet) ContainsAny(issns ...string) bool {
	for _, issn := range issns {
		if issn != "" && s.Contains(issn) {
			return true
		}
	}
	return false
}

// IsValidISSN checks the NNNN-NNNC shape: two groups of four separated by a
// hyphen, where the check digit may be X.
func IsValidISSN(issn string) bool {
	if len(issn) != 9 || issn[4] != '-' {
		return false
	}
	for i, c := range issn {
		if i == 4 {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		// Check digit may be X.
		if i == 8 && (c == 'X' || c == 'x') {
			continue
		}
		return false
	}
	return true
}
