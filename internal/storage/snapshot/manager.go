package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/vaultgate/internal/core/domain"
)

const (
	filePrefix    = "blob-"
	fileExtension = ".vgb"

	DefaultRetentionCount = 5
	DefaultRetentionDays  = 7
)

var (
	ErrNotFound = errors.New("snapshot: not found")
	ErrNoFiles  = errors.New("snapshot: no readable blob files")
)

// Config configures the blob file manager.
type Config struct {
	Dir string

	RetentionCount int
	RetentionDays  int

	Encryption *EncryptionConfig
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

// Manager keeps a directory of blob files.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if cfg.Encryption != nil {
		if err := ValidateConfig(*cfg.Encryption); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	return &Manager{cfg: cfg}, nil
}

// Info describes a blob file in the managed directory.
type Info struct {
	Name      string `json:"name" yaml:"name"`
	BlobID    string `json:"blob_id,omitempty" yaml:"blob_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Encrypted bool   `json:"encrypted" yaml:"encrypted"`
	Size      int64  `json:"size" yaml:"size"`
	Path      string `json:"path" yaml:"path"`

	// Err is set when the file could not be inspected.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Write encodes blob into a new file and returns its info.
func (m *Manager) Write(blob *domain.VaultedBlob) (*Info, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, blob, m.cfg.Encryption); err != nil {
		return nil, err
	}

	name := m.generateName(time.Now())
	tempPath := filepath.Join(m.cfg.Dir, name+".tmp")
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	finalPath := filepath.Join(m.cfg.Dir, name+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		Name:      name,
		BlobID:    blob.ID,
		Timestamp: blob.Timestamp,
		Encrypted: m.cfg.Encryption.Enabled(),
		Size:      int64(buf.Len()),
		Path:      finalPath,
	}, nil
}

// Read decodes the named file.
func (m *Manager) Read(name string) (*domain.VaultedBlob, error) {
	name = strings.TrimSuffix(filepath.Base(name), fileExtension)
	f, err := os.Open(filepath.Join(m.cfg.Dir, name+fileExtension))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	blob, _, err := Decode(f, m.cfg.Encryption)
	return blob, err
}

// Latest returns the newest readable file for blobID. Corrupted files are
// skipped in favour of older ones.
func (m *Manager) Latest(blobID string) (*domain.VaultedBlob, *Info, error) {
	infos, err := m.List()
	if err != nil {
		return nil, nil, err
	}

	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]
		if info.Err != "" || info.BlobID != blobID {
			continue
		}
		blob, err := m.Read(info.Name)
		if err == nil {
			return blob, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) || errors.Is(err, ErrTruncated) {
			continue
		}
		return nil, nil, err
	}
	return nil, nil, ErrNoFiles
}

// List returns all blob files, oldest first. Unreadable files are listed
// with Err set.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	infos := make([]*Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, m.inspect(name))
	}
	return infos, nil
}

func (m *Manager) inspect(name string) *Info {
	path := filepath.Join(m.cfg.Dir, name)
	info := &Info{
		Name: strings.TrimSuffix(name, fileExtension),
		Path: path,
	}

	f, err := os.Open(path)
	if err != nil {
		info.Err = err.Error()
		return info
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}
	hdr, err := Inspect(f)
	if err != nil {
		info.Err = err.Error()
		return info
	}
	info.BlobID = hdr.ID
	info.Timestamp = hdr.Timestamp
	info.Encrypted = hdr.Encrypted
	return info
}

// Prune applies the retention policy and returns the removed file names.
// The newest file is always kept.
func (m *Manager) Prune() ([]string, error) {
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(infos) <= 1 {
		return nil, nil
	}

	keep := make(map[string]struct{}, len(infos))

	if m.cfg.RetentionCount > 0 {
		start := len(infos) - m.cfg.RetentionCount
		if start < 0 {
			start = 0
		}
		for _, info := range infos[start:] {
			keep[info.Path] = struct{}{}
		}
	}

	if m.cfg.RetentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(m.cfg.RetentionDays) * 24 * time.Hour)
		for _, info := range infos {
			st, err := os.Stat(info.Path)
			if err != nil {
				continue
			}
			if st.ModTime().After(cutoff) {
				keep[info.Path] = struct{}{}
			}
		}
	}

	keep[infos[len(infos)-1].Path] = struct{}{}

	var removed []string
	var errs []error
	for _, info := range infos {
		if _, ok := keep[info.Path]; ok {
			continue
		}
		if err := os.Remove(info.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, info.Name)
	}
	return removed, errors.Join(errs...)
}

func (m *Manager) generateName(t time.Time) string {
	ts := t.UTC().Format("20060102150405")
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, filePrefix+ts+"-") && strings.HasSuffix(name, fileExtension) {
			seq++
		}
	}
	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
