package modelfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layer is one node in a model's layer graph. Shape dims use -1 for
// unknown/batch dimensions.
type Layer struct {
	Name        string
	Class       string
	InputShape  []int
	OutputShape []int
	Inbound     []string
}

// Model is the layer-connectivity graph loaded from a trained model artifact.
type Model struct {
	Name   string
	Class  string
	Layers []Layer
}

// Load reads a model artifact, dispatching on the file extension.
func Load(path string) (*Model, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".keras":
		return loadKeras(path)
	case ".gguf":
		return loadGGUF(path)
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

// ShapeString formats a shape the way diagram labels expect, e.g. (None, 784).
func ShapeString(shape []int) string {
	if len(shape) == 0 {
		return "(?)"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		if d < 0 {
			parts[i] = "None"
		} else {
			parts[i] = fmt.Sprintf("%d", d)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
