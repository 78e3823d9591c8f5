package types

import "context"

// Watcher is the lifecycle contract for a single line's directory watch,
// mirroring the Monitor interface the teacher uses for its file tailers.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// Emitter delivers mapped rows to the target SQL Server and reports
// whether the failure (if any) is transient (connection-level) or
// permanent (statement-level).
type Emitter interface {
	Insert(ctx context.Context, query string, mappings []MappingRow, row map[string]string) error
}

// Processor runs the full per-file state machine: settle, quarantine,
// parse, map, emit, dispose.
type Processor interface {
	ProcessFile(ctx context.Context, line *Line, path string) error
}
