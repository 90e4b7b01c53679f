// Package assets resolves logical reference names to on-disk reference
// images. A store is rooted at one app's image directory and partitions
// images into the root (elements), system/ (page indicators) and contacts/
// sub-spaces. Resolution is read-only and cached; missing references resolve
// to nothing rather than an error.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Supported image extensions, in resolution preference order.
var imageExts = []string{".png", ".jpg", ".jpeg", ".webp"}

// aliasFile is the on-disk shape of aliases.yaml.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Store resolves reference names within one app's asset directory.
type Store struct {
	root    string
	aliases map[string]string

	mu    sync.RWMutex
	cache map[string]string

	watcher *fsnotify.Watcher
}

// NewStore opens a store rooted at dir and loads aliases.yaml if present.
//
// Parameters:
//   - dir: The app's images directory
//
// Returns:
//   - *Store: The store (valid even when dir does not exist)
func NewStore(dir string) *Store {
	s := &Store{
		root:    dir,
		aliases: map[string]string{},
		cache:   map[string]string{},
	}
	s.loadAliases()
	return s
}

func (s *Store) loadAliases() {
	data, err := os.ReadFile(filepath.Join(s.root, "aliases.yaml"))
	if err != nil {
		return
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		log.Warn("bad aliases.yaml", "dir", s.root, "err", err)
		return
	}
	s.aliases = f.Aliases
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Resolve maps a logical name to an image path. Order: cache, alias table,
// exact file in the root, exact file in contacts/, fuzzy substring match in
// the root then contacts/. Returns "" when nothing matches.
func (s *Store) Resolve(name string) string {
	if name == "" {
		return ""
	}

	s.mu.RLock()
	if p, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return p
	}
	s.mu.RUnlock()

	resolved := s.resolve(name)
	if resolved != "" {
		s.mu.Lock()
		s.cache[name] = resolved
		s.mu.Unlock()
	}
	return resolved
}

func (s *Store) resolve(name string) string {
	if real, ok := s.aliases[name]; ok {
		name = real
	}

	for _, dir := range []string{s.root, filepath.Join(s.root, "contacts")} {
		for _, ext := range imageExts {
			p := filepath.Join(dir, name+ext)
			if fileExists(p) {
				return p
			}
		}
	}

	// Fuzzy: case-insensitive substring on the file stem.
	lower := strings.ToLower(name)
	for _, dir := range []string{s.root, filepath.Join(s.root, "contacts")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !hasImageExt(e.Name()) {
				continue
			}
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if strings.Contains(strings.ToLower(stem), lower) {
				return filepath.Join(dir, e.Name())
			}
		}
	}
	return ""
}

// Variants returns the main image path followed by its numbered variants
// (_v2, _v3, ...). An unresolvable name yields an empty slice.
func (s *Store) Variants(name string) []string {
	main := s.Resolve(name)
	if main == "" {
		return nil
	}
	paths := []string{main}

	dir := filepath.Dir(main)
	base := filepath.Base(main)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for v := 2; v <= 9; v++ {
		found := ""
		for _, ext := range imageExts {
			p := filepath.Join(dir, fmt.Sprintf("%s_v%d%s", stem, v, ext))
			if fileExists(p) {
				found = p
				break
			}
		}
		if found == "" {
			break
		}
		paths = append(paths, found)
	}
	return paths
}

// List returns the logical names of every image in the root and the system/
// and contacts/ sub-spaces. Sub-space entries are prefixed with the
// directory name (e.g. "contacts/zhang_hua"). Variants are folded into
// their main name.
func (s *Store) List() []string {
	seen := map[string]bool{}
	var names []string

	add := func(prefix, file string) {
		stem := strings.TrimSuffix(file, filepath.Ext(file))
		if i := strings.LastIndex(stem, "_v"); i > 0 && isDigits(stem[i+2:]) {
			stem = stem[:i]
		}
		name := stem
		if prefix != "" {
			name = prefix + "/" + stem
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	walk := func(prefix string) {
		dir := s.root
		if prefix != "" {
			dir = filepath.Join(s.root, prefix)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() && hasImageExt(e.Name()) {
				add(prefix, e.Name())
			}
		}
	}

	walk("")
	walk("system")
	walk("contacts")
	sort.Strings(names)
	return names
}

// Watch starts invalidating the resolution cache whenever the asset tree
// changes. Used in debug mode so captured reference images take effect
// without a restart.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting asset watcher: %w", err)
	}
	for _, dir := range []string{s.root, filepath.Join(s.root, "system"), filepath.Join(s.root, "contacts")} {
		if fileExists(dir) {
			_ = w.Add(dir)
		}
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
					s.mu.Lock()
					s.cache = map[string]string{}
					s.mu.Unlock()
					s.loadAliases()
					log.Debug("asset cache invalidated", "event", ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("asset watcher", "err", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func hasImageExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
