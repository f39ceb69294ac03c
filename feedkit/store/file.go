package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// FileOptions tunes how a file store opens its content.
type FileOptions struct {
	// MMap maps the file into memory and serves zero-copy reads.
	MMap bool
	// Compression defaults to inference from the pathname.
	Compression streams.Compression
}

// File is a data store over a regular file.
type File struct {
	pathname    string
	mmap        bool
	compression streams.Compression
}

// NewFile creates a file store. The pathname is resolved to an absolute path
// so that store identity survives working-directory changes.
func NewFile(pathname string, opts FileOptions) *File {
	if abs, err := filepath.Abs(pathname); err == nil {
		pathname = abs
	}
	return &File{pathname: pathname, mmap: opts.MMap, compression: opts.Compression}
}

func (f *File) OpenRead() (streams.Stream, error) {
	logrus.Debugf("store: opening file '%s'", f.pathname)

	var stream streams.Stream
	if f.mmap {
		block, err := memory.NewFileMappedBlock(f.pathname)
		if err != nil {
			return nil, err
		}
		stream = streams.NewMemoryStream(memory.NewSlice(block))
	} else {
		var err error
		stream, err = streams.OpenFile(f.pathname)
		if err != nil {
			return nil, err
		}
	}
	return streams.NewInflateStream(stream, effectiveCompression(f.compression, f.pathname))
}

func (f *File) ID() string     { return f.pathname }
func (f *File) String() string { return quoteID("file", f.pathname) }

// ListFilesParams controls dataset assembly from the filesystem.
type ListFilesParams struct {
	// Pathnames to files or directories; directories are walked
	// recursively.
	Pathnames []string
	// Pattern is an optional glob applied to the full pathname.
	Pattern string
	// Predicate is an optional caller filter applied to the full pathname.
	Predicate Predicate
	MMap      bool
	Compression streams.Compression
}

// ListFiles expands the given pathnames into file stores in natural sort
// order. Only regular files are considered.
func ListFiles(params ListFilesParams) ([]Store, error) {
	var pathnames []string

	for _, root := range params.Pathnames {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("store: the file or directory '%s' cannot be opened: %w", root, err)
		}
		if info.Mode().IsRegular() {
			pathnames = append(pathnames, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("store: the file or directory '%s' cannot be opened: %w", path, err)
			}
			if !d.Type().IsRegular() {
				return nil
			}
			pathnames = append(pathnames, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	filtered := pathnames[:0]
	for _, p := range pathnames {
		if params.Pattern != "" && !wildcardMatch(params.Pattern, p) {
			continue
		}
		if params.Predicate != nil && !params.Predicate(p) {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.Slice(filtered, func(i, j int) bool { return natLess(filtered[i], filtered[j]) })

	stores := make([]Store, 0, len(filtered))
	for _, p := range filtered {
		stores = append(stores, NewFile(p, FileOptions{MMap: params.MMap, Compression: params.Compression}))
	}
	return stores, nil
}
