package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	configDirName   = "dealbook"
	storageFileName = "storage.json"
	backupSuffix    = ".bak"
	sqliteFileName  = "storage.sqlite"
)

// DefaultDir returns ~/.config/dealbook.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// FilePath returns the JSON storage file inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, storageFileName)
}

// SQLitePath returns the SQLite storage file inside dir.
func SQLitePath(dir string) string {
	return filepath.Join(dir, sqliteFileName)
}

// FileStore keeps all keys in a single JSON object file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, logger: zerolog.Nop()}
}

// SetLogger sets where recovery from a damaged file is reported.
func (f *FileStore) SetLogger(logger zerolog.Logger) {
	f.logger = logger
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// load reads the file. A missing file reads as empty. A corrupt one is moved
// aside to <path>.bak and also reads as empty, so a damaged store degrades to
// a logged-out, bookmark-free state without the next write destroying it.
func (f *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := json.Unmarshal(data, &values); err != nil {
		backup := f.path + backupSuffix
		if renameErr := os.Rename(f.path, backup); renameErr != nil {
			return nil, fmt.Errorf("storage file is corrupt and could not be moved aside: %w", renameErr)
		}
		f.logger.Warn().Err(err).Str("path", f.path).Str("backup", backup).Msg("Storage file is corrupt, starting empty")
		return make(map[string]string), nil
	}

	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}

	return nil
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}
