package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// LoadISSNs reads the ISSN allow-list file. The run cannot proceed without
// it: an unreadable, malformed or empty file is a configuration error.
func LoadISSNs(path string) (domain.ISSNSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening ISSN file %s: %v", domain.ErrConfig, path, err)
	}
	defer f.Close()

	set, err := domain.ParseISSNSet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// LoadPIDs reads a PID list file, one PID per line. Blank lines are
// skipped; order is preserved and duplicates are kept for the selector to
// drop.
func LoadPIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PID file %s: %v", domain.ErrConfig, path, err)
	}
	defer f.Close()

	var pids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		pid := strings.TrimSpace(scanner.Text())
		if pid == "" {
			continue
		}
		pids = append(pids, pid)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading PID file %s: %v", domain.ErrConfig, path, err)
	}

	if len(pids) == 0 {
		return nil, fmt.Errorf("%w: PID file %s is empty", domain.ErrConfig, path)
	}
	return pids, nil
}
