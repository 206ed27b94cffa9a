package modelfile

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKerasArchive(t *testing.T, configJSON string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.keras")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("config.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(configJSON))
	require.NoError(t, err)
	w2, err := zw.Create("metadata.json")
	require.NoError(t, err)
	_, err = w2.Write([]byte(`{"keras_version": "3.0.0"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return path
}

const sequentialConfig = `{
  "class_name": "Sequential",
  "config": {
    "name": "mnist_classifier",
    "layers": [
      {
        "class_name": "Flatten",
        "config": {"name": "flatten"},
        "build_config": {"input_shape": [null, 28, 28]}
      },
      {
        "class_name": "Dense",
        "config": {"name": "dense", "units": 128},
        "build_config": {"input_shape": [null, 784]}
      },
      {
        "class_name": "Dense",
        "config": {"name": "dense_1", "units": 10},
        "build_config": {"input_shape": [null, 128]}
      }
    ]
  }
}`

func TestLoadKerasSequential(t *testing.T) {
	path := writeKerasArchive(t, sequentialConfig)

	model, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mnist_classifier", model.Name)
	assert.Equal(t, "Sequential", model.Class)
	require.Len(t, model.Layers, 3)

	assert.Equal(t, "flatten", model.Layers[0].Name)
	assert.Empty(t, model.Layers[0].Inbound)
	assert.Equal(t, []int{-1, 28, 28}, model.Layers[0].InputShape)

	assert.Equal(t, "dense", model.Layers[1].Name)
	assert.Equal(t, []string{"flatten"}, model.Layers[1].Inbound)
	assert.Equal(t, []int{-1, 128}, model.Layers[1].OutputShape)

	assert.Equal(t, []string{"dense"}, model.Layers[2].Inbound)
	assert.Equal(t, []int{-1, 10}, model.Layers[2].OutputShape)
}

const functionalConfig = `{
  "class_name": "Functional",
  "config": {
    "name": "two_branch",
    "layers": [
      {
        "class_name": "InputLayer",
        "config": {"name": "input"},
        "inbound_nodes": []
      },
      {
        "class_name": "Dense",
        "config": {"name": "branch_a", "units": 16},
        "inbound_nodes": [
          {"args": [{"class_name": "__keras_tensor__", "config": {"keras_history": ["input", 0, 0]}}], "kwargs": {}}
        ],
        "build_config": {"input_shape": [null, 8]}
      },
      {
        "class_name": "Dense",
        "config": {"name": "branch_b", "units": 16},
        "inbound_nodes": [
          {"args": [{"class_name": "__keras_tensor__", "config": {"keras_history": ["input", 0, 0]}}], "kwargs": {}}
        ],
        "build_config": {"input_shape": [null, 8]}
      },
      {
        "class_name": "Concatenate",
        "config": {"name": "concat"},
        "inbound_nodes": [
          {"args": [[{"class_name": "__keras_tensor__", "config": {"keras_history": ["branch_a", 0, 0]}}, {"class_name": "__keras_tensor__", "config": {"keras_history": ["branch_b", 0, 0]}}]], "kwargs": {}}
        ]
      }
    ]
  }
}`

func TestLoadKerasFunctional(t *testing.T) {
	path := writeKerasArchive(t, functionalConfig)

	model, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Functional", model.Class)
	require.Len(t, model.Layers, 4)

	assert.Equal(t, []string{"input"}, model.Layers[1].Inbound)
	assert.Equal(t, []string{"input"}, model.Layers[2].Inbound)
	assert.Equal(t, []string{"branch_a", "branch_b"}, model.Layers[3].Inbound)
}

const kerasV2Config = `{
  "class_name": "Functional",
  "config": {
    "name": "legacy",
    "layers": [
      {
        "class_name": "InputLayer",
        "config": {"name": "input_1"},
        "inbound_nodes": []
      },
      {
        "class_name": "Dense",
        "config": {"name": "dense", "units": 4},
        "inbound_nodes": [[["input_1", 0, 0, {}]]]
      }
    ]
  }
}`

func TestLoadKerasLegacyInboundFormat(t *testing.T) {
	path := writeKerasArchive(t, kerasV2Config)

	model, err := Load(path)
	require.NoError(t, err)
	require.Len(t, model.Layers, 2)
	assert.Equal(t, []string{"input_1"}, model.Layers[1].Inbound)
}

func TestLoadKerasMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.keras")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Load(path)
	assert.ErrorContains(t, err, "config.json")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("model.h5")
	assert.Error(t, err)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "(None, 784)", ShapeString([]int{-1, 784}))
	assert.Equal(t, "(?)", ShapeString(nil))
}
