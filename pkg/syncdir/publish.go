package syncdir

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/normalize"
	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/session"
)

// exportedAtLayout matches the local, zone-less timestamps exports carry.
const exportedAtLayout = "2006-01-02T15:04:05.000000"

// PublishResult describes one publish.
type PublishResult struct {
	Path      string `json:"path" yaml:"path"`
	MachineID string `json:"machine_id" yaml:"machine_id"`
	Sessions  int    `json:"sessions" yaml:"sessions"`
	Digest    string `json:"digest" yaml:"digest"`
	Skipped   bool   `json:"skipped" yaml:"skipped"`
}

type publishOptions struct {
	identity *Identity
	force    bool
	clock    func() time.Time
}

// Option configures Publish.
type Option func(*publishOptions)

// WithIdentity publishes as id instead of the local machine.
func WithIdentity(id Identity) Option {
	return func(o *publishOptions) {
		o.identity = &id
	}
}

// WithForce rewrites the export even when its sessions are unchanged.
func WithForce(force bool) Option {
	return func(o *publishOptions) {
		o.force = force
	}
}

// WithClock sets the clock stamping exported_at.
func WithClock(clock func() time.Time) Option {
	return func(o *publishOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// ReadLocal reads a local session list. The file holds either a JSON array
// of sessions or an object wrapping them.
func ReadLocal(path string) ([]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied input file
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	raw, err := session.DecodeBytes(data)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	entries := normalize.Entries(raw)
	if entries == nil {
		entries = []any{}
	}
	return entries, nil
}

// Publish writes entries as this machine's export in the sync folder. When
// the export already holds the same sessions, compared in canonical form,
// nothing is written unless forced.
func Publish(ctx context.Context, dir string, entries []any, opts ...Option) (*PublishResult, error) {
	o := &publishOptions{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if entries == nil {
		entries = []any{}
	}

	id := o.identity
	if id == nil {
		local, err := LocalIdentity()
		if err != nil {
			return nil, &errors.ConfigError{Component: "identity", Message: "cannot determine machine identity", Err: err}
		}
		id = &local
	}

	digest, err := digestEntries(entries)
	if err != nil {
		return nil, err
	}

	path := ExportPath(dir, id.MachineID)
	result := &PublishResult{
		Path:      path,
		MachineID: id.MachineID,
		Sessions:  len(entries),
		Digest:    digest,
	}

	logger := logging.FromContext(ctx).With().
		Str("machine_id", id.MachineID).
		Str("file", path).
		Logger()

	if !o.force {
		if existing, ok := publishedDigest(path); ok && existing == digest {
			result.Skipped = true
			logger.Info().Msg("Export unchanged, skipping publish")
			return result, nil
		}
	}

	doc := session.NewObject()
	doc.Set("machine_id", id.MachineID)
	doc.Set("hostname", id.Hostname)
	doc.Set("platform", id.Platform)
	doc.Set("exported_at", o.clock().Format(exportedAtLayout))
	doc.Set("sessions", entries)

	data, err := persist.Marshal(doc, "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(DataDir(dir), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", DataDir(dir), err)
	}
	if err := persist.WriteFileAtomic(path, data, constants.FilePermissions); err != nil {
		return nil, err
	}

	logger.Info().Int("sessions", len(entries)).Msgf("Published %d sessions", len(entries))
	return result, nil
}

func digestEntries(entries []any) (string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return persist.DigestJSON(raw)
}

// publishedDigest returns the digest of the sessions of an existing export.
func publishedDigest(path string) (string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // export path inside the sync folder
	if err != nil {
		return "", false
	}
	raw, err := session.DecodeBytes(data)
	if err != nil {
		return "", false
	}
	doc, ok := raw.(*session.Object)
	if !ok {
		return "", false
	}
	sessions, ok := doc.Get("sessions")
	if !ok {
		return "", false
	}
	list, ok := sessions.([]any)
	if !ok {
		return "", false
	}
	digest, err := digestEntries(list)
	if err != nil {
		return "", false
	}
	return digest, true
}
