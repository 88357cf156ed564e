package file

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Manager owns a database directory and the paged files inside it. OS file handles are kept in
// an LRU cache bounded by Config.MaxOpenFiles and closed when they fall out of it; a PagedFile
// transparently reopens its handle on the next access.
// The Manager is thread-safe.
type Manager struct {
	dbDirectory  string
	pageSize     int
	isNew        bool
	syncWrites   bool
	logger       *slog.Logger
	mu           sync.Mutex
	handles      *lru.Cache
	files        map[string]*PagedFile
	closeErr     error
	closed       bool
	pagesRead    int
	pagesWritten int
}

// NewManager opens (creating if needed) dbDirectory. Files whose names start with "temp" are
// left over from an earlier run and are removed.
func NewManager(dbDirectory string, pageSize int, opts ...Option) (*Manager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	isNew := false
	if _, err := os.Stat(dbDirectory); os.IsNotExist(err) {
		isNew = true
		if err := os.MkdirAll(dbDirectory, 0755); err != nil {
			return nil, fmt.Errorf("cannot create directory %s: %w", dbDirectory, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("cannot access directory %s: %w", dbDirectory, err)
	}

	entries, err := os.ReadDir(dbDirectory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dbDirectory, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "temp") {
			tempFilePath := filepath.Join(dbDirectory, entry.Name())
			if err := os.Remove(tempFilePath); err != nil {
				return nil, fmt.Errorf("cannot remove file %s: %w", tempFilePath, err)
			}
		}
	}

	m := &Manager{
		dbDirectory: dbDirectory,
		pageSize:    pageSize,
		isNew:       isNew,
		syncWrites:  config.SyncWrites,
		logger:      config.Logger,
		files:       make(map[string]*PagedFile),
	}
	m.handles, err = lru.NewWithEvict(config.MaxOpenFiles, m.onHandleEvicted)
	if err != nil {
		return nil, fmt.Errorf("cannot create handle cache: %w", err)
	}
	return m, nil
}

// Open returns the paged file called name, creating it if it does not exist yet.
// Repeated calls with the same name return the same *PagedFile.
func (m *Manager) Open(name string) (*PagedFile, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrFileClosed
	}
	if pf, ok := m.files[name]; ok {
		return pf, nil
	}

	f, err := m.getFile(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", name, err)
	}

	pf := &PagedFile{manager: m, name: name}
	if info.Size() == 0 {
		if err := pf.initialize(f); err != nil {
			return nil, err
		}
		m.logger.Debug("created paged file", "file", name, "pageSize", m.pageSize)
	} else if err := pf.load(f); err != nil {
		return nil, err
	}
	m.files[name] = pf
	return pf, nil
}

// Remove closes and deletes the file called name. Removing a file that does not exist is not an error.
// PagedFile values previously returned for name must not be used afterwards.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrFileClosed
	}
	delete(m.files, name)
	m.handles.Remove(name)
	if err := m.takeCloseErr(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(m.dbDirectory, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove file %s: %w", name, err)
	}
	return nil
}

// Close closes every open handle. The Manager and its files cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.handles.Purge()
	m.closed = true
	m.files = nil
	return m.takeCloseErr()
}

// getFile returns an open handle for filename. This method is not thread-safe.
func (m *Manager) getFile(filename string) (*os.File, error) {
	if m.closed {
		return nil, ErrFileClosed
	}
	if v, ok := m.handles.Get(filename); ok {
		return v.(*os.File), nil
	}

	path := filepath.Join(m.dbDirectory, filename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("cannot open file %s: %w", path, err)
	}
	m.handles.Add(filename, f)
	return f, nil
}

func (m *Manager) onHandleEvicted(key interface{}, value interface{}) {
	f := value.(*os.File)
	if err := f.Close(); err != nil {
		m.closeErr = errors.Join(m.closeErr, fmt.Errorf("close %v: %w", key, err))
	}
}

func (m *Manager) takeCloseErr() error {
	err := m.closeErr
	m.closeErr = nil
	return err
}

// IsNew returns true if the database directory was created by this Manager.
func (m *Manager) IsNew() bool {
	return m.isNew
}

// PageSize returns the page size of every file in the directory.
func (m *Manager) PageSize() int {
	return m.pageSize
}

// OpenHandles returns the number of OS file handles currently cached.
func (m *Manager) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0
	}
	return m.handles.Len()
}

func (m *Manager) PagesRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pagesRead
}

func (m *Manager) PagesWritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pagesWritten
}
