package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ChunksFileName     = "na_edu_chunks.json"
	EmbeddingsFileName = "na_edu_embeddings.json"
)

// FileInfo describes one snapshot file on disk.
type FileInfo struct {
	Path         string    `json:"path"`
	Exists       bool      `json:"exists"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// FileLoader reads a snapshot from a directory holding the chunk and
// embedding JSON files.
type FileLoader struct {
	Dir string
}

var _ Loader = (*FileLoader)(nil)

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

func (l *FileLoader) ChunksPath() string {
	return filepath.Join(l.Dir, ChunksFileName)
}

func (l *FileLoader) EmbeddingsPath() string {
	return filepath.Join(l.Dir, EmbeddingsFileName)
}

func (l *FileLoader) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record
	if err := readJSON(l.ChunksPath(), &records); err != nil {
		return nil, err
	}

	var vectors [][]float32
	if err := readJSON(l.EmbeddingsPath(), &vectors); err != nil {
		return nil, err
	}

	return &Snapshot{
		Records:    records,
		Vectors:    vectors,
		Origin:     l.Dir,
		ModifiedAt: l.ModTime(),
	}, nil
}

// ModTime returns the newest modification time of the two snapshot files, or
// the zero time when either is missing.
func (l *FileLoader) ModTime() time.Time {
	var latest time.Time
	for _, info := range l.Files() {
		if !info.Exists {
			return time.Time{}
		}
		if info.LastModified.After(latest) {
			latest = info.LastModified
		}
	}
	return latest
}

func (l *FileLoader) Files() []FileInfo {
	paths := []string{l.ChunksPath(), l.EmbeddingsPath()}
	infos := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		info := FileInfo{Path: p}
		if st, err := os.Stat(p); err == nil {
			info.Exists = true
			info.Size = st.Size()
			info.LastModified = st.ModTime()
		}
		infos = append(infos, info)
	}
	return infos
}

// Write persists a snapshot in the layout Load expects.
func (l *FileLoader) Write(snap *Snapshot) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := writeJSON(l.ChunksPath(), snap.Records); err != nil {
		return err
	}
	return writeJSON(l.EmbeddingsPath(), snap.Vectors)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
