package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileSink writes the wire byte stream verbatim to disk.
type FileSink struct {
	f *os.File
}

// FileConfig configures a FileSink. If Path is empty, a name of the
// form trace/YYYY-MM-DD_HH-MM-SS.sprk is generated under Dir (or
// "trace" if Dir is also empty).
type FileConfig struct {
	Path string
	Dir  string
}

// autoName builds the default trace file name for a given instant,
// kept as a separate function so tests can check it without touching
// the filesystem's current time.
func autoName(dir string, now time.Time) string {
	if dir == "" {
		dir = "trace"
	}
	return filepath.Join(dir, now.Format("2006-01-02_15-04-05")+".sprk")
}

// OpenFileSink creates (or truncates) the target file, creating
// parent directories as needed.
func OpenFileSink(cfg FileConfig) (*FileSink, error) {
	path := cfg.Path
	if path == "" {
		path = autoName(cfg.Dir, time.Now())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: creating trace directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: opening trace file: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Send(data []byte) error {
	_, err := s.f.Write(data)
	return err
}

func (s *FileSink) Close() error {
	return s.f.Close()
}
