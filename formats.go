package flame

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Supported model container extensions.
const (
	PKL = ".pkl"
	NPZ = ".npz"
)

// ContainerReader loads a model container into named dense arrays.
type ContainerReader interface {
	Read(path string) (map[string]*Array, error)
}

// ContainerFactory returns the reader for a container extension, or nil when
// the extension is not supported.
func ContainerFactory(ext string) ContainerReader {
	switch strings.ToLower(ext) {
	case PKL:
		return &PklReader{}
	case NPZ:
		return &NpzReader{}
	}
	return nil
}

// LoadContainer reads a model container into named arrays without
// interpreting them, dispatching on the file extension.
func LoadContainer(path string) (map[string]*Array, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader := ContainerFactory(ext)
	if reader == nil {
		return nil, errUnsupportedFormat(ext)
	}
	return reader.Read(path)
}

func errUnsupportedFormat(ext string) error {
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported FLAME model format: %s", ext)
}
