package persist

import (
	"os"
	"path/filepath"

	"github.com/agentstation/usagesync/pkg/errors"
)

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written artifact.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.WrapIO("write", tempPath, err)
	}
	if err := f.Sync(); err != nil {
		return errors.WrapIO("sync", tempPath, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", tempPath, err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return errors.WrapIO("chmod", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return errors.WrapIO("rename", path, err)
	}

	success = true
	return nil
}
