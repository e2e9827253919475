package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes artifacts below a local directory.
type FileSink struct {
	Dir string
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Kind returns "file".
func (s *FileSink) Kind() string { return "file" }

// Write stores a at Dir/a.Name, creating parent directories.
func (s *FileSink) Write(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.Dir, filepath.FromSlash(a.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	if err := os.WriteFile(target, a.Body, 0o644); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	return nil
}
