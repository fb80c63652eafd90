package session

// Resolution names the rule that selected a winner for a duplicated session.
type Resolution string

const (
	// ResolutionIdentical means every duplicate carried the same content.
	ResolutionIdentical Resolution = "identical_content"
	// ResolutionMostComplete means the duplicate with the most populated fields won.
	ResolutionMostComplete Resolution = "most_complete_record"
	// ResolutionMostRecent means the duplicate from the newest file won.
	ResolutionMostRecent Resolution = "most_recent"
)

// String returns the string representation of a resolution.
func (r Resolution) String() string {
	return string(r)
}

// ErrorType classifies a per-file load failure.
type ErrorType string

const (
	// ErrorTypeCorrupt is recorded when a file cannot be decoded as JSON.
	ErrorTypeCorrupt ErrorType = "corrupt_file"
	// ErrorTypeUnknown is recorded for every other per-file failure.
	ErrorTypeUnknown ErrorType = "unknown_error"
)

// String returns the string representation of an error type.
func (t ErrorType) String() string {
	return string(t)
}

// MachineStat summarizes one machine's export for a run.
type MachineStat struct {
	File         string  `json:"file" yaml:"file"`
	SessionCount int     `json:"session_count" yaml:"session_count"`
	LastModified string  `json:"last_modified" yaml:"last_modified"`
	TotalCost    float64 `json:"total_cost" yaml:"total_cost"`
	TotalTokens  int64   `json:"total_tokens" yaml:"total_tokens"`
}

// Conflict records how one duplicated session id was resolved.
type Conflict struct {
	SessionID       string     `json:"session_id" yaml:"session_id"`
	Duplicates      int        `json:"duplicates" yaml:"duplicates"`
	Machines        []string   `json:"machines" yaml:"machines"`
	Resolution      Resolution `json:"resolution" yaml:"resolution"`
	SelectedMachine string     `json:"selected_machine,omitempty" yaml:"selected_machine,omitempty"`
}

// LoadError records a file that could not be ingested.
type LoadError struct {
	File  string    `json:"file" yaml:"file"`
	Error string    `json:"error" yaml:"error"`
	Type  ErrorType `json:"type" yaml:"type"`
}
