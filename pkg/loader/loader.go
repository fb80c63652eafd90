// Package loader finds per-machine usage exports in a sync directory and
// turns them into normalized sessions, recording a load error for every file
// that cannot be ingested.
package loader

import (
	"context"
	"os"
	"time"

	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/normalize"
	"github.com/agentstation/usagesync/pkg/schema"
	"github.com/agentstation/usagesync/pkg/session"
)

// File is the outcome of loading one export file.
type File struct {
	Path      string
	MachineID string
	Modified  time.Time
	Sessions  []*session.Session
	Header    Header
	Err       error
}

// Header is the descriptive part of a published export.
type Header struct {
	Hostname   string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Platform   string `json:"platform,omitempty" yaml:"platform,omitempty"`
	ExportedAt string `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
}

func header(doc *session.Object) Header {
	get := func(key string) string {
		v, _ := doc.Get(key)
		return session.ToString(v)
	}
	return Header{
		Hostname:   get("hostname"),
		Platform:   get("platform"),
		ExportedAt: get("exported_at"),
	}
}

// Batch is everything loaded from a set of files.
type Batch struct {
	// Files in load order, failed ones included.
	Files []*File

	// Sessions from every successfully loaded file, in load order.
	Sessions []*session.Session

	Errors []session.LoadError

	// MachineStats is keyed by machine id. A later file with the same
	// machine id replaces the earlier entry.
	MachineStats map[string]session.MachineStat
}

// Machines returns the machine ids present in MachineStats.
func (b *Batch) Machines() []string {
	ids := make([]string, 0, len(b.MachineStats))
	for _, f := range b.Files {
		if f.Err != nil {
			continue
		}
		if _, ok := b.MachineStats[f.MachineID]; !ok {
			continue
		}
		if !contains(ids, f.MachineID) {
			ids = append(ids, f.MachineID)
		}
	}
	return ids
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Loader reads export files.
type Loader struct {
	root       string
	normalizer *normalize.Normalizer
}

// New creates a loader for files discovered under root.
func New(root string, normalizer *normalize.Normalizer) *Loader {
	if normalizer == nil {
		normalizer = normalize.New()
	}
	return &Loader{root: root, normalizer: normalizer}
}

// Load reads files sequentially. Per-file failures are recorded in the batch;
// the returned error is non-nil only when ctx is done.
func (l *Loader) Load(ctx context.Context, files []string) (*Batch, error) {
	logger := logging.FromContext(ctx)

	batch := &Batch{
		MachineStats: make(map[string]session.MachineStat),
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		f := l.LoadFile(ctx, path)
		batch.Files = append(batch.Files, f)

		if f.Err != nil {
			loadErr := session.LoadError{
				File:  path,
				Error: f.Err.Error(),
				Type:  Classify(f.Err),
			}
			batch.Errors = append(batch.Errors, loadErr)
			logger.Error().
				Err(f.Err).
				Str("file", path).
				Str("type", loadErr.Type.String()).
				Msg("Failed to load export")
			continue
		}

		batch.Sessions = append(batch.Sessions, f.Sessions...)
		batch.MachineStats[f.MachineID] = machineStat(f)

		logger.Info().
			Str("machine_id", f.MachineID).
			Int("sessions", len(f.Sessions)).
			Msgf("Loaded %d sessions from %s", len(f.Sessions), f.MachineID)
	}

	return batch, nil
}

// LoadFile reads, validates and normalizes a single export file.
func (l *Loader) LoadFile(ctx context.Context, path string) *File {
	f := &File{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		f.Err = errors.WrapIO("stat", path, err)
		return f
	}
	f.Modified = info.ModTime()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from discovery
	if err != nil {
		f.Err = errors.WrapIO("read", path, err)
		return f
	}

	raw, err := session.DecodeBytes(data)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.File = path
		}
		f.Err = err
		return f
	}

	doc, ok := raw.(*session.Object)
	if !ok {
		f.Err = &errors.ValidationError{Field: "document", Value: path, Message: "expected a JSON object at the top level"}
		return f
	}
	if err := schema.ValidateExport(data); err != nil {
		f.Err = err
		return f
	}

	f.MachineID = MachineID(doc, path, l.root)
	f.Header = header(doc)

	fileCtx := logging.WithFile(logging.WithMachine(ctx, f.MachineID), path)
	f.Sessions = l.normalizer.Normalize(fileCtx, doc)

	modified := float64(f.Modified.UnixNano()) / float64(time.Second)
	for _, s := range f.Sessions {
		s.Provenance.MachineID = f.MachineID
		s.Provenance.SourceFile = path
		s.Provenance.FileModified = modified
	}
	return f
}

// Classify maps a load failure to its error type.
func Classify(err error) session.ErrorType {
	if errors.IsCorrupt(err) {
		return session.ErrorTypeCorrupt
	}
	return session.ErrorTypeUnknown
}

func machineStat(f *File) session.MachineStat {
	stat := session.MachineStat{
		File:         f.Path,
		SessionCount: len(f.Sessions),
		LastModified: f.Modified.UTC().Format(time.RFC3339),
	}
	for _, s := range f.Sessions {
		stat.TotalCost += s.TotalCost
		stat.TotalTokens += s.TotalTokens()
	}
	return stat
}
