package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/schema"
)

// LatestSessionsPath returns the newest reconciled sessions artifact in dir.
// Artifact names embed a sortable timestamp, so the newest is the last by name.
func LatestSessionsPath(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, constants.SessionsArtifactPrefix+"*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", &errors.NotFoundError{Resource: "reconciled sessions in", ID: dir}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches[0], nil
}

// LatestSessions reads the newest reconciled sessions artifact in dir.
func LatestSessions(dir string) (*SessionsFile, string, error) {
	path, err := LatestSessionsPath(dir)
	if err != nil {
		return nil, "", err
	}
	file, err := ReadSessions(path)
	if err != nil {
		return nil, "", err
	}
	return file, path, nil
}

// ReadSessions reads and validates a reconciled sessions artifact.
func ReadSessions(path string) (*SessionsFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is a discovered artifact
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	if err := schema.ValidateReconciled(data); err != nil {
		return nil, err
	}

	var file SessionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return &file, nil
}
