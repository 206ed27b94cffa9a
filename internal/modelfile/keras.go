package modelfile

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
)

// A .keras file is a zip archive; config.json inside it carries the layer
// graph for both Sequential and Functional models.
const kerasConfigName = "config.json"

type kerasSpec struct {
	ClassName string           `json:"class_name"`
	Config    kerasModelConfig `json:"config"`
}

type kerasModelConfig struct {
	Name   string       `json:"name"`
	Layers []kerasLayer `json:"layers"`
}

type kerasLayer struct {
	ClassName    string           `json:"class_name"`
	Name         string           `json:"name"`
	Config       map[string]any   `json:"config"`
	InboundNodes json.RawMessage  `json:"inbound_nodes"`
	BuildConfig  kerasBuildConfig `json:"build_config"`
}

type kerasBuildConfig struct {
	InputShape []any `json:"input_shape"`
}

func loadKeras(path string) (*Model, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keras archive: %w", err)
	}
	defer r.Close()

	var data []byte
	for _, file := range r.File {
		if file.Name != kerasConfigName {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", kerasConfigName, err)
		}
		data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", kerasConfigName, err)
		}
		break
	}
	if data == nil {
		return nil, fmt.Errorf("no %s in keras archive", kerasConfigName)
	}

	var root kerasSpec
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode model config: %w", err)
	}

	model := &Model{
		Name:  root.Config.Name,
		Class: root.ClassName,
	}
	for i, kl := range root.Config.Layers {
		layer := Layer{
			Name:       kl.layerName(),
			Class:      kl.ClassName,
			InputShape: toShape(kl.BuildConfig.InputShape),
			Inbound:    inboundNames(kl.InboundNodes),
		}
		layer.OutputShape = kl.outputShape(layer.InputShape)

		// Sequential models carry no inbound nodes; layers chain in order.
		if root.ClassName == "Sequential" && len(layer.Inbound) == 0 && i > 0 {
			layer.Inbound = []string{model.Layers[i-1].Name}
		}
		model.Layers = append(model.Layers, layer)
	}
	return model, nil
}

func (kl kerasLayer) layerName() string {
	if name, ok := kl.Config["name"].(string); ok && name != "" {
		return name
	}
	return kl.Name
}

// outputShape derives the output shape where the layer config makes it
// obvious; otherwise the input shape passes through.
func (kl kerasLayer) outputShape(input []int) []int {
	if units, ok := kl.Config["units"].(float64); ok {
		return []int{-1, int(units)}
	}
	return input
}

func toShape(dims []any) []int {
	var shape []int
	for _, d := range dims {
		if f, ok := d.(float64); ok {
			shape = append(shape, int(f))
		} else {
			shape = append(shape, -1)
		}
	}
	return shape
}

// inboundNames pulls predecessor layer names out of inbound_nodes, which has
// two historical encodings: keras v3 wraps them in keras_history entries,
// keras v2 uses nested [name, node_index, tensor_index, ...] arrays.
func inboundNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}

	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	collectInbound(decoded, add)
	return names
}

func collectInbound(v any, add func(string)) {
	switch val := v.(type) {
	case map[string]any:
		if hist, ok := val["keras_history"].([]any); ok && len(hist) > 0 {
			if name, ok := hist[0].(string); ok {
				add(name)
			}
		}
		for _, child := range val {
			collectInbound(child, add)
		}
	case []any:
		if len(val) >= 3 {
			name, nameOK := val[0].(string)
			_, idxOK := val[1].(float64)
			if nameOK && idxOK {
				add(name)
				return
			}
		}
		for _, child := range val {
			collectInbound(child, add)
		}
	}
}
