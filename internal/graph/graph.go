package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"

	"data-cleaner/internal/modelfile"
)

// DOT builds the graphviz source for a model's layer graph: one box per
// layer labelled with class, name and tensor shapes, one edge per inbound
// connection.
func DOT(m *modelfile.Model) string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", m.Name)
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=record, fontname=\"Helvetica\"];\n")

	for _, layer := range m.Layers {
		fmt.Fprintf(&b, "  %q [label=\"{%s: %s|in: %s|out: %s}\"];\n",
			layer.Name,
			escapeLabel(layer.Class),
			escapeLabel(layer.Name),
			modelfile.ShapeString(layer.InputShape),
			modelfile.ShapeString(layer.OutputShape),
		)
	}
	for _, layer := range m.Layers {
		for _, from := range layer.Inbound {
			fmt.Fprintf(&b, "  %q -> %q;\n", from, layer.Name)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func escapeLabel(s string) string {
	r := strings.NewReplacer("{", "\\{", "}", "\\}", "|", "\\|", "<", "\\<", ">", "\\>", "\"", "\\\"")
	return r.Replace(s)
}

// Render writes the layer diagram; the output extension picks the format.
// .dot and .gv get raw graphviz source, .png and .svg a rendered image.
func Render(m *modelfile.Model, outPath string) error {
	src := DOT(m)

	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".dot", ".gv":
		return os.WriteFile(outPath, []byte(src), 0644)
	case ".png":
		return renderImage(src, graphviz.PNG, outPath)
	case ".svg":
		return renderImage(src, graphviz.SVG, outPath)
	default:
		return fmt.Errorf("unsupported diagram format: %s", filepath.Ext(outPath))
	}
}

func renderImage(src string, format graphviz.Format, outPath string) error {
	ctx := context.Background()

	g, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize graphviz: %w", err)
	}
	defer g.Close()

	parsed, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return fmt.Errorf("failed to parse graph: %w", err)
	}
	defer parsed.Close()

	// RenderFilename is broken in the wasm-based v0.2 releases (the guest
	// filesystem mount is read-only, so it silently writes an empty file);
	// render to the host-opened file instead.
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to render diagram: %w", err)
	}
	defer f.Close()

	if err := g.Render(ctx, parsed, format, f); err != nil {
		return fmt.Errorf("failed to render diagram: %w", err)
	}
	return nil
}
