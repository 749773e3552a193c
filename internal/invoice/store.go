package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
)

// Entry describes a stored invoice.
type Entry struct {
	Number     string    `json:"number"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Store keeps one PDF per invoice number in a flat directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("invoice: store directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("invoice: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(number string) (string, error) {
	if !ValidNumber(number) {
		return "", fmt.Errorf("%w: invoice %q", httpx.ErrNotFound, number)
	}
	return filepath.Join(s.dir, number+".pdf"), nil
}

// Save writes the document atomically; readers never see a partial file.
func (s *Store) Save(number string, pdf []byte) error {
	p, err := s.path(number)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p, bytes.NewReader(pdf)); err != nil {
		return fmt.Errorf("invoice: save %s: %w", number, err)
	}
	return nil
}

// Exists reports whether number has been rendered.
func (s *Store) Exists(number string) bool {
	p, err := s.path(number)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Open returns the stored bytes exactly as saved.
func (s *Store) Open(number string) ([]byte, error) {
	p, err := s.path(number)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: invoice %s", httpx.ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("invoice: open %s: %w", number, err)
	}
	return data, nil
}

// List returns stored invoices, most recently written first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("invoice: list: %w", err)
	}
	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		number := strings.TrimSuffix(de.Name(), ".pdf")
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".pdf") || !ValidNumber(number) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Number:     number,
			Filename:   de.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].ModifiedAt.After(out[j].ModifiedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}
