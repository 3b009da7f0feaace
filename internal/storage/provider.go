// Package storage defines the site file-system abstraction.
package storage

import "io/fs"

// BackupSuffix is appended to a file name to form its single backup sibling.
const BackupSuffix = ".bak"

// WalkFunc is called for every entry below the walked directory with its
// slash-separated path relative to the provider root. Returning fs.SkipDir
// for a directory skips its contents.
type WalkFunc func(rel string, d fs.DirEntry) error

// Provider is the interface for site file operations. All paths are relative
// to the provider root.
type Provider interface {
	// Root returns the absolute directory the provider is confined to.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// WriteWithBackup copies the current bytes of path (if any) to
	// path+BackupSuffix, overwriting a previous backup, then writes content.
	WriteWithBackup(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Walk visits every entry under dir in lexical order. Unreadable
	// subdirectories are skipped; an unreadable dir is an error.
	Walk(dir string, fn WalkFunc) error
}
