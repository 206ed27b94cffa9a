package modelfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGGUFWriter builds minimal GGUF files for testing.
type mockGGUFWriter struct {
	buf *bytes.Buffer
}

func newMockGGUFWriter() *mockGGUFWriter {
	return &mockGGUFWriter{buf: &bytes.Buffer{}}
}

func (m *mockGGUFWriter) writeU32(v uint32) {
	binary.Write(m.buf, binary.LittleEndian, v)
}

func (m *mockGGUFWriter) writeU64(v uint64) {
	binary.Write(m.buf, binary.LittleEndian, v)
}

func (m *mockGGUFWriter) writeString(s string) {
	m.writeU64(uint64(len(s)))
	m.buf.WriteString(s)
}

func (m *mockGGUFWriter) writeStringKV(key, value string) {
	m.writeString(key)
	m.writeU32(ggufTypeString)
	m.writeString(value)
}

func (m *mockGGUFWriter) writeU32KV(key string, value uint32) {
	m.writeString(key)
	m.writeU32(ggufTypeUint32)
	m.writeU32(value)
}

func (m *mockGGUFWriter) writeStringArrayKV(key string, values []string) {
	m.writeString(key)
	m.writeU32(ggufTypeArray)
	m.writeU32(ggufTypeString)
	m.writeU64(uint64(len(values)))
	for _, v := range values {
		m.writeString(v)
	}
}

func (m *mockGGUFWriter) header(version uint32, tensorCount, kvCount uint64) {
	m.writeU32(ggufMagic)
	m.writeU32(version)
	m.writeU64(tensorCount)
	m.writeU64(kvCount)
}

func writeMockGGUF(t *testing.T, build func(w *mockGGUFWriter)) string {
	t.Helper()
	w := newMockGGUFWriter()
	build(w)
	path := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, os.WriteFile(path, w.buf.Bytes(), 0644))
	return path
}

func TestLoadGGUF(t *testing.T) {
	path := writeMockGGUF(t, func(w *mockGGUFWriter) {
		w.header(3, 0, 6)
		w.writeStringKV("general.architecture", "llama")
		w.writeStringKV("general.name", "tinyllama")
		w.writeU32KV("llama.block_count", 2)
		w.writeU32KV("llama.embedding_length", 64)
		w.writeU32KV("llama.feed_forward_length", 256)
		w.writeU32KV("llama.attention.head_count", 4)
	})

	model, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tinyllama", model.Name)
	assert.Equal(t, "llama", model.Class)

	// embedding + 2 blocks of (attn, ffn) + norm + output
	require.Len(t, model.Layers, 7)
	assert.Equal(t, "token_embd", model.Layers[0].Name)
	assert.Equal(t, "blk.0.attn", model.Layers[1].Name)
	assert.Equal(t, []string{"token_embd"}, model.Layers[1].Inbound)
	assert.Equal(t, []string{"blk.0.ffn"}, model.Layers[3].Inbound)
	assert.Equal(t, "output", model.Layers[6].Name)
	assert.Equal(t, []int{-1, 64}, model.Layers[6].InputShape)
}

func TestLoadGGUFVocabFromTokenTable(t *testing.T) {
	path := writeMockGGUF(t, func(w *mockGGUFWriter) {
		w.header(2, 0, 4)
		w.writeStringKV("general.architecture", "llama")
		w.writeU32KV("llama.block_count", 1)
		w.writeU32KV("llama.embedding_length", 8)
		w.writeStringArrayKV("tokenizer.ggml.tokens", []string{"<s>", "</s>", "a", "b"})
	})

	model, err := Load(path)
	require.NoError(t, err)

	// token table length stands in for vocab size
	assert.Equal(t, []int{-1, 4}, model.Layers[0].InputShape)
	assert.Equal(t, []int{-1, 4}, model.Layers[len(model.Layers)-1].OutputShape)
}

func TestLoadGGUFBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, os.WriteFile(path, []byte("NOTGGUF!more bytes here"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid magic")
}

func TestLoadGGUFUnsupportedVersion(t *testing.T) {
	path := writeMockGGUF(t, func(w *mockGGUFWriter) {
		w.header(1, 0, 0)
	})

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported GGUF version")
}

func TestLoadGGUFMissingArchitecture(t *testing.T) {
	path := writeMockGGUF(t, func(w *mockGGUFWriter) {
		w.header(3, 0, 1)
		w.writeStringKV("general.name", "anonymous")
	})

	_, err := Load(path)
	assert.ErrorContains(t, err, "general.architecture")
}
