// Package assets resolves texture files referenced by avatars and
// customization profiles, and decodes them into scene images.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// ErrNotFound is returned when no search path holds the requested file.
var ErrNotFound = errors.New("asset not found")

// Manager loads texture files from a list of search paths.
// Decoded images are cached so every texture referencing one file shares a
// single scene image.
type Manager struct {
	paths []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager searching the given directories.
func NewManager(paths ...string) *Manager {
	m := &Manager{cache: NewCache()}
	for _, p := range paths {
		m.AddSearchPath(p)
	}
	return m
}

// AddSearchPath adds a directory to search.
// Paths are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchPath(dir string) {
	m.mu.Lock()
	m.paths = append(m.paths, dir)
	m.mu.Unlock()
}

// Resolve returns the path of the named file. Absolute names are used as-is.
func (m *Manager) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return name, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.paths) - 1; i >= 0; i-- {
		p := filepath.Join(m.paths[i], filepath.FromSlash(name))
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load reads the named file.
func (m *Manager) Load(name string) ([]byte, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Image loads and decodes the named texture file. It returns the image and
// the MIME type of the file.
func (m *Manager) Image(name string) (*scene.Image, string, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, "", err
	}
	if e, ok := m.cache.Get(path); ok {
		return e.Image, e.MimeType, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	src, mime, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", path, err)
	}

	img := scene.NewImage(filepath.Base(path), src)
	m.cache.Set(path, Entry{Image: img, MimeType: mime})
	return img, mime, nil
}

// Texture loads the named file as a texture with default sampling.
func (m *Manager) Texture(name string) (*scene.Texture, error) {
	img, mime, err := m.Image(name)
	if err != nil {
		return nil, err
	}
	t := scene.NewTexture(img, mime)
	t.Name = img.Name
	return t, nil
}

// Close drops every cached image.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Entry is a decoded texture file.
type Entry struct {
	Image    *scene.Image
	MimeType string
}

// Cache is a simple in-memory cache for decoded images.
type Cache struct {
	data map[string]Entry
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]Entry),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = e
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]Entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
