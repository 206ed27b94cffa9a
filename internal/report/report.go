package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"data-cleaner/internal/cleaner"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Build renders a markdown summary of a cleaning run: totals plus one table
// row per chunk, so dropped or coerced chunks are visible after the fact.
func Build(runID string, res cleaner.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Cleaning run %s\n\n", runID)
	fmt.Fprintf(&b, "- Chunks: %d\n", len(res.Chunks))
	fmt.Fprintf(&b, "- Failed chunks: %d\n", res.Failed())
	fmt.Fprintf(&b, "- Output rows: %d\n", res.Table.NumRows())
	fmt.Fprintf(&b, "- Output columns: %s\n\n", strings.Join(res.Table.Columns, ", "))

	b.WriteString("| Chunk | Rows | Rows in | Rows out | Coerced | Error |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, c := range res.Chunks {
		errText := ""
		if c.Err != nil {
			errText = c.Err.Error()
		}
		fmt.Fprintf(&b, "| %d | %d-%d | %d | %d | %v | %s |\n",
			c.Index, c.Start, c.End, c.RowsIn, c.RowsOut, c.Coerced, errText)
	}

	return b.String()
}

// RenderHTML converts the markdown report to HTML.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write persists the report; the extension decides markdown or HTML.
func Write(runID string, res cleaner.Result, path string) error {
	markdown := Build(runID, res)

	content := markdown
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		rendered, err := RenderHTML(markdown)
		if err != nil {
			return err
		}
		content = rendered
	}
	return os.WriteFile(path, []byte(content), 0644)
}
