package reader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is an uploaded or locally read file.
type File struct {
	Name string
	Data []byte
}

// SimpleDirectoryReader collects files from a directory.
type SimpleDirectoryReader struct {
	inputDir   string
	recursive  bool
	extensions []string // e.g. ".txt", ".pdf"
}

// NewSimpleDirectoryReader creates a new SimpleDirectoryReader. Without
// extensions every type the MIME table knows is accepted.
func NewSimpleDirectoryReader(inputDir string, recursive bool, extensions ...string) *SimpleDirectoryReader {
	if len(extensions) == 0 {
		extensions = SupportedExtensions()
	}
	return &SimpleDirectoryReader{
		inputDir:   inputDir,
		recursive:  recursive,
		extensions: extensions,
	}
}

// ListFiles returns the paths of matching files in walk order. Hidden files
// and directories are skipped.
func (r *SimpleDirectoryReader) ListFiles() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(r.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != r.inputDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !r.recursive && path != r.inputDir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range r.extensions {
			if ext == e {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", r.inputDir, err)
	}

	return paths, nil
}

// LoadFiles reads every matching file. File names are relative to the input
// directory.
func (r *SimpleDirectoryReader) LoadFiles() ([]File, error) {
	paths, err := r.ListFiles()
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		name, err := filepath.Rel(r.inputDir, path)
		if err != nil {
			name = filepath.Base(path)
		}
		files = append(files, File{Name: filepath.ToSlash(name), Data: content})
	}
	return files, nil
}

// LoadPaths reads files and directories given on the command line.
// Directories are walked recursively for supported extensions; plain files
// are read whatever their extension and named by their base name.
func LoadPaths(paths ...string) ([]File, error) {
	var files []File
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if info.IsDir() {
			dirFiles, err := NewSimpleDirectoryReader(path, true).LoadFiles()
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		files = append(files, File{Name: filepath.Base(path), Data: content})
	}
	return files, nil
}
