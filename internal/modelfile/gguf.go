package modelfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// GGUF magic number: "GGUF" in little-endian
const ggufMagic = 0x46554747

const (
	ggufTypeUint8 = iota
	ggufTypeInt8
	ggufTypeUint16
	ggufTypeInt16
	ggufTypeUint32
	ggufTypeInt32
	ggufTypeFloat32
	ggufTypeBool
	ggufTypeString
	ggufTypeArray
	ggufTypeUint64
	ggufTypeInt64
	ggufTypeFloat64
)

// ggufMetadata holds scalar metadata values; arrays are stored as their
// element count only, which is all the layer graph needs (vocab size).
type ggufMetadata map[string]any

func loadGGUF(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gguf file: %w", err)
	}
	defer f.Close()

	meta, err := parseGGUFMetadata(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	return modelFromGGUF(meta)
}

func parseGGUFMetadata(r io.Reader) (ggufMetadata, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != ggufMagic {
		return nil, fmt.Errorf("invalid magic: expected 0x%x (GGUF), got 0x%x", ggufMagic, magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version < 2 || version > 3 {
		return nil, fmt.Errorf("unsupported GGUF version: %d (supported: 2-3)", version)
	}

	var tensorCount, kvCount uint64
	if err := binary.Read(r, binary.LittleEndian, &tensorCount); err != nil {
		return nil, fmt.Errorf("failed to read tensor count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &kvCount); err != nil {
		return nil, fmt.Errorf("failed to read KV count: %w", err)
	}

	meta := make(ggufMetadata, kvCount)
	for i := uint64(0); i < kvCount; i++ {
		key, err := readGGUFString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata key %d: %w", i, err)
		}
		var valueType uint32
		if err := binary.Read(r, binary.LittleEndian, &valueType); err != nil {
			return nil, fmt.Errorf("failed to read value type for key %s: %w", key, err)
		}
		value, err := readGGUFValue(r, valueType)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata value for %s: %w", key, err)
		}
		meta[key] = value
	}
	return meta, nil
}

func readGGUFString(r io.Reader) (string, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readGGUFValue(r io.Reader, valueType uint32) (any, error) {
	switch valueType {
	case ggufTypeUint8:
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeInt8:
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeUint16:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeInt16:
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeUint32:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeInt32:
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeFloat32:
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeBool:
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v != 0, err
	case ggufTypeString:
		return readGGUFString(r)
	case ggufTypeUint64:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeInt64:
		var v int64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeFloat64:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case ggufTypeArray:
		return readGGUFArrayLength(r)
	default:
		return nil, fmt.Errorf("unknown metadata value type: %d", valueType)
	}
}

// readGGUFArrayLength consumes an array value and returns only its element
// count. Token and merge tables run to hundreds of thousands of entries the
// graph has no use for beyond their size.
func readGGUFArrayLength(r io.Reader) (int, error) {
	var elemType uint32
	if err := binary.Read(r, binary.LittleEndian, &elemType); err != nil {
		return 0, err
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, err
	}
	for i := uint64(0); i < count; i++ {
		if _, err := readGGUFValue(r, elemType); err != nil {
			return 0, err
		}
	}
	return int(count), nil
}

func (m ggufMetadata) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m ggufMetadata) num(key string) int {
	switch v := m[key].(type) {
	case uint8:
		return int(v)
	case int8:
		return int(v)
	case uint16:
		return int(v)
	case int16:
		return int(v)
	case uint32:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// modelFromGGUF synthesizes the transformer block stack out of the
// architecture metadata: embedding, N identical blocks, final norm, output
// projection back to the vocabulary.
func modelFromGGUF(meta ggufMetadata) (*Model, error) {
	arch := meta.str("general.architecture")
	if arch == "" {
		return nil, fmt.Errorf("no general.architecture in metadata")
	}

	name := meta.str("general.name")
	if name == "" {
		name = arch
	}

	embd := meta.num(arch + ".embedding_length")
	blocks := meta.num(arch + ".block_count")
	ffn := meta.num(arch + ".feed_forward_length")
	heads := meta.num(arch + ".attention.head_count")
	vocab := meta.num(arch + ".vocab_size")
	if vocab == 0 {
		vocab = meta.num("tokenizer.ggml.tokens")
	}

	model := &Model{Name: name, Class: arch}
	model.Layers = append(model.Layers, Layer{
		Name:        "token_embd",
		Class:       "Embedding",
		InputShape:  []int{-1, vocab},
		OutputShape: []int{-1, embd},
	})

	prev := "token_embd"
	for i := 0; i < blocks; i++ {
		attn := Layer{
			Name:        fmt.Sprintf("blk.%d.attn", i),
			Class:       fmt.Sprintf("Attention(heads=%d)", heads),
			InputShape:  []int{-1, embd},
			OutputShape: []int{-1, embd},
			Inbound:     []string{prev},
		}
		ff := Layer{
			Name:        fmt.Sprintf("blk.%d.ffn", i),
			Class:       fmt.Sprintf("FeedForward(%d)", ffn),
			InputShape:  []int{-1, embd},
			OutputShape: []int{-1, embd},
			Inbound:     []string{attn.Name},
		}
		model.Layers = append(model.Layers, attn, ff)
		prev = ff.Name
	}

	model.Layers = append(model.Layers,
		Layer{
			Name:        "output_norm",
			Class:       "Norm",
			InputShape:  []int{-1, embd},
			OutputShape: []int{-1, embd},
			Inbound:     []string{prev},
		},
		Layer{
			Name:        "output",
			Class:       "Linear",
			InputShape:  []int{-1, embd},
			OutputShape: []int{-1, vocab},
			Inbound:     []string{"output_norm"},
		},
	)
	return model, nil
}
