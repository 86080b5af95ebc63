package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// versionWidth matches the zero padding of the shipped migrations (000001_...)
const versionWidth = 6

var (
	migrationFileRe = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)
	nonWordRe       = regexp.MustCompile(`[^a-z0-9]+`)
)

// Entry is one up/down pair on disk
type Entry struct {
	Version uint64
	Name    string
	HasUp   bool
	HasDown bool
}

// Base returns the shared file prefix, e.g. 000003_create_cart_items
func (e Entry) Base() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, e.Version, e.Name)
}

// Complete reports whether both directions exist
func (e Entry) Complete() bool {
	return e.HasUp && e.HasDown
}

// NewFile is the result of Create
type NewFile struct {
	Entry
	UpPath   string
	DownPath string
}

// List reads the migrations in fsys, ordered by version
func List(fsys fs.FS) ([]Entry, error) {
	dirEntries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	byVersion := make(map[uint64]*Entry)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(de.Name())
		if match == nil {
			continue
		}
		version, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		e, ok := byVersion[version]
		if !ok {
			e = &Entry{Version: version, Name: match[2]}
			byVersion[version] = e
		}
		if match[3] == "up" {
			e.HasUp = true
		} else {
			e.HasDown = true
		}
	}

	entries := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Create writes an empty up/down pair in dir using the next free version
func Create(dir, name, description string) (*NewFile, error) {
	slug := Slug(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var next uint64 = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	nf := &NewFile{Entry: Entry{Version: next, Name: slug, HasUp: true, HasDown: true}}
	nf.UpPath = filepath.Join(dir, nf.Base()+".up.sql")
	nf.DownPath = filepath.Join(dir, nf.Base()+".down.sql")

	created := time.Now().UTC().Format(time.RFC3339)
	if err := writeNew(nf.UpPath, header(nf.Base(), description, created)+"\n-- schema change\n"); err != nil {
		return nil, err
	}
	if err := writeNew(nf.DownPath, header(nf.Base(), "revert: "+description, created)+"\n-- undo the up migration\n"); err != nil {
		_ = os.Remove(nf.UpPath)
		return nil, err
	}
	return nf, nil
}

func header(base, description, created string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s\n", base)
	if description != "" {
		fmt.Fprintf(&b, "-- %s\n", description)
	}
	fmt.Fprintf(&b, "-- created %s\n", created)
	return b.String()
}

// writeNew refuses to overwrite an existing file
func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Slug lowercases name and collapses every run of other characters into one underscore
func Slug(name string) string {
	return strings.Trim(nonWordRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
