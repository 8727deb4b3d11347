package history

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Writer appends entries to the history file and prunes the oldest ones.
type Writer struct {
	// StateDir is the directory containing the history file.
	StateDir string
	// MaxEntries is the maximum number of entries to retain. Zero keeps all.
	MaxEntries int

	logger zerolog.Logger
	mu     sync.Mutex
}

// NewWriter creates a new history writer that reports failures on stderr.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{
		StateDir:   stateDir,
		MaxEntries: maxEntries,
		logger:     zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}),
	}
}

// WithLogger sets the logger used for non-fatal write failures.
func (w *Writer) WithLogger(l zerolog.Logger) *Writer {
	w.logger = l
	return w
}

// LogEntry adds a new entry to the history file. Errors are logged as
// warnings and never fail the calling command.
func (w *Writer) LogEntry(entry Entry) {
	if err := w.append(entry); err != nil {
		w.logger.Warn().Err(err).Str("state_dir", w.StateDir).Msg("failed to record release history")
	}
}

func (w *Writer) append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := Load(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	f.Entries = append(f.Entries, entry)

	if w.MaxEntries > 0 && len(f.Entries) > w.MaxEntries {
		excess := len(f.Entries) - w.MaxEntries
		f.Entries = f.Entries[excess:]
	}

	if err := Save(w.StateDir, f); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}
