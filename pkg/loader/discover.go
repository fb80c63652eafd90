package loader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
)

// Discover returns the candidate export files in dir and in its immediate
// subdirectories, sorted and without duplicates. A missing directory yields
// no files and no error. Hidden entries and the artifacts written by a
// reconciliation run are skipped.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, &errors.ValidationError{Field: "sync_dir", Value: dir, Message: "is not a directory"}
	}

	dirs := []string{dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapIO("read", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() && !hidden(entry.Name()) {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}

	seen := make(map[string]struct{})
	for _, d := range dirs {
		for _, pattern := range constants.ExportGlobPatterns {
			matches, err := filepath.Glob(filepath.Join(d, pattern))
			if err != nil {
				return nil, &errors.ValidationError{Field: "pattern", Value: pattern, Message: err.Error()}
			}
			for _, match := range matches {
				if skip(match) {
					continue
				}
				seen[match] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(seen))
	for file := range seen {
		files = append(files, file)
	}
	sort.Strings(files)
	return files, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// skip reports whether a glob match is not an export file.
func skip(path string) bool {
	name := filepath.Base(path)
	if hidden(name) || IsArtifact(name) {
		return true
	}
	info, err := os.Stat(path)
	return err != nil || !info.Mode().IsRegular()
}

// IsArtifact reports whether name is a file written by a reconciliation run.
func IsArtifact(name string) bool {
	return strings.HasPrefix(name, constants.SessionsArtifactPrefix) ||
		strings.HasPrefix(name, constants.ReportArtifactPrefix) ||
		strings.HasPrefix(name, constants.SummaryArtifactPrefix)
}
