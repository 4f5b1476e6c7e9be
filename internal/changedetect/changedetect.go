// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package changedetect walks one sync directory and reports which files
// have changed since the last confirmed send, without mutating any
// persisted state itself — the caller decides when it is safe to record
// that a file or a directory's mtime was actually dealt with.
package changedetect

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
)

// Kind classifies why a file is being reported.
type Kind int

const (
	// Added means the file has no prior files_change_detection_data entry.
	Added Kind = iota
	// Modified means the file has a prior entry whose mtime no longer matches.
	Modified
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// ChangedFile is one file the walk found to differ from its last known
// change-detection data, along with the freshly computed content hash
// the caller needs to both send the file and, on confirmed receipt,
// update the store.
type ChangedFile struct {
	Kind Kind

	// RelPath is forward-slash separated, relative to the sync root.
	RelPath string

	Size        int64
	ModTimeUnix int64
	ContentHash []byte
}

// Result is what Detect returns for one DirectoryToSync.
type Result struct {
	// NewLastModifiedTime is the directory's current mtime in seconds. The
	// caller persists it only after every file below has been attempted.
	NewLastModifiedTime int64

	Changed []ChangedFile
}

// Detect walks dir.Path and compares what it finds against
// dir.FilesChangeDetectionData. If the directory's own mtime (seconds)
// equals dir.FolderLastModifiedTime, the walk is skipped entirely and an
// empty Result is returned — the common case once a tree is fully
// synced and nothing inside it has changed since.
func Detect(dir store.DirectoryToSync) (Result, error) {
	info, err := os.Stat(dir.Path)
	if err != nil {
		return Result{}, fmt.Errorf("changedetect: stat %s: %w", dir.Path, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("changedetect: %s is not a directory", dir.Path)
	}

	newMtime := info.ModTime().Unix()
	if dir.FolderLastModifiedTime != nil && *dir.FolderLastModifiedTime == newMtime {
		return Result{NewLastModifiedTime: newMtime}, nil
	}

	var changed []ChangedFile
	err = filepath.WalkDir(dir.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(dir.Path, path)
		if err != nil {
			return fmt.Errorf("changedetect: relativizing %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("changedetect: stat %s: %w", path, err)
		}
		mtime := fi.ModTime().Unix()

		prior, known := dir.FilesChangeDetectionData[relPath]
		if known && prior.LastModifiedTime == mtime {
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("changedetect: hashing %s: %w", path, err)
		}

		kind := Modified
		if !known {
			kind = Added
		}

		changed = append(changed, ChangedFile{
			Kind:        kind,
			RelPath:     relPath,
			Size:        fi.Size(),
			ModTimeUnix: mtime,
			ContentHash: hash,
		})
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("changedetect: walking %s: %w", dir.Path, err)
	}

	return Result{NewLastModifiedTime: newMtime, Changed: changed}, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
