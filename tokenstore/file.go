package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Devices map[string]Credentials `yaml:"devices"`
}

// File keeps credentials for every known device in one YAML document.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(_ context.Context, host string) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return Credentials{}, err
	}
	creds, ok := doc.Devices[host]
	if !ok {
		return Credentials{}, ErrNotFound
	}
	creds.Host = host
	return creds, nil
}

// Save replaces the entry for creds.Host and rewrites the file atomically.
func (f *File) Save(_ context.Context, creds Credentials) error {
	if creds.Host == "" {
		return errors.New("tokenstore: credentials without host")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if doc.Devices == nil {
		doc.Devices = make(map[string]Credentials)
	}
	doc.Devices[creds.Host] = creds
	return f.write(doc)
}

func (f *File) read() (fileDocument, error) {
	var doc fileDocument
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *File) write(doc fileDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s into place: %w", f.path, err)
	}
	return nil
}
