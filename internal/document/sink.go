package document

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Sink stores a finished text under a name
type Sink interface {
	Write(name, text string) error
}

// FileSink writes files on an afero filesystem
type FileSink struct {
	fs afero.Fs
}

// NewFileSink creates a sink on fs. A nil fs means the OS filesystem.
func NewFileSink(fs afero.Fs) *FileSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSink{fs: fs}
}

// Write replaces name with text, creating parent directories as needed.
func (s *FileSink) Write(name, text string) error {
	if dir := filepath.Dir(name); dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, name, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
