package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Compile-time interface check.
var _ Sink = (*FileSink)(nil)

// FileSink persists events as append-only JSON lines in a local file.
// Suitable for development and small deployments; production setups should
// prefer [PGSink]. Thread-safe for concurrent use.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a FileSink that writes to path. The file is created on
// the first event if it does not exist.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// LogIntentEvent appends ev as one JSON line.
func (fs *FileSink) LogIntentEvent(_ context.Context, ev Event) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("telemetry: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("telemetry: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("telemetry: write: %w", err)
	}
	return nil
}
