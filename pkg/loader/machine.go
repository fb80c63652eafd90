package loader

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/session"
)

// MachineID resolves the machine an export belongs to: the document's
// machine_id, then its hostname, then the filename tokens after the second
// underscore, then the parent directory when the file sits below root, and
// finally a stable value derived from the path.
func MachineID(doc *session.Object, path, root string) string {
	for _, key := range []string{"machine_id", "hostname"} {
		if v, ok := doc.Get(key); ok {
			if id := session.ToString(v); id != "" {
				return id
			}
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if parts := strings.Split(stem, "_"); len(parts) >= 3 {
		return strings.Join(parts[2:], "_")
	}

	parent := filepath.Dir(path)
	if root != "" && filepath.Clean(parent) != filepath.Clean(root) {
		return filepath.Base(parent)
	}

	return PathMachineID(path)
}

// PathMachineID derives a machine id from a file path. Collisions are
// possible and tolerated.
func PathMachineID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%s%d", constants.UnknownMachinePrefix, binary.BigEndian.Uint32(sum[:4])%10000)
}
