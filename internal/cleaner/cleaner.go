package cleaner

import (
	"context"
	"fmt"
	"strings"

	"data-cleaner/internal/llmservice"
	"data-cleaner/internal/models"
	"data-cleaner/internal/table"

	"github.com/rs/zerolog/log"
)

// Options parameterizes a cleaning run. TargetColumns is the only required
// field; the rest default to the original script's behavior.
type Options struct {
	TargetColumns    []string
	Sample           *table.Table
	AdditionalPrompt string
	Model            string
	ChunkSize        int
}

// ChunkReport records what happened to one chunk: the row range sent, the
// rows that came back, whether the header had to be coerced, and the error
// that caused the chunk to be dropped, if any.
type ChunkReport struct {
	Index   int
	Start   int
	End     int
	RowsIn  int
	RowsOut int
	Coerced bool
	Err     error
}

// Result is the cleaned table plus per-chunk diagnostics. Failed chunks are
// absent from the table but present in Chunks with Err set.
type Result struct {
	Table  table.Table
	Chunks []ChunkReport
}

// Failed returns the number of chunks that were dropped.
func (r Result) Failed() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// Clean splits src into row chunks, asks the model to reformat each one into
// the target columns, and concatenates every chunk that came back parseable.
// Chunk failures are logged and recorded but never abort the run; there is no
// retry. An all-failures run yields an empty table.
func Clean(ctx context.Context, llm llmservice.Completer, src table.Table, opts Options) Result {
	if opts.Model == "" {
		opts.Model = models.DefaultModel
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = models.DefaultChunkSize
	}

	var (
		cleaned []table.Table
		reports []ChunkReport
	)
	for i, rng := range table.ChunkRanges(src.NumRows(), opts.ChunkSize) {
		chunk := src.Slice(rng.Start, rng.End)
		report := ChunkReport{Index: i, Start: rng.Start, End: rng.End, RowsIn: chunk.NumRows()}

		prompt := BuildPrompt(chunk, opts)
		reply, err := llm.Complete(ctx, opts.Model, prompt)
		if err != nil {
			log.Error().Err(err).Int("chunk", i).Str("prompt", prompt).Msg("Error processing a chunk")
			report.Err = fmt.Errorf("completion failed: %w", err)
			reports = append(reports, report)
			continue
		}

		parsed, err := table.ParseCSV(llmservice.Sanitize(reply))
		if err != nil {
			log.Error().Err(err).Int("chunk", i).Str("prompt", prompt).Str("reply", reply).Msg("Error processing a chunk")
			report.Err = fmt.Errorf("reply parse failed: %w", err)
			reports = append(reports, report)
			continue
		}

		if !parsed.ColumnsEqual(opts.TargetColumns) {
			log.Warn().
				Int("chunk", i).
				Strs("output_columns", parsed.Columns).
				Strs("target_columns", opts.TargetColumns).
				Msg("Output columns do not match target columns")
			parsed = parsed.Reindex(opts.TargetColumns)
			report.Coerced = true
		}

		report.RowsOut = parsed.NumRows()
		cleaned = append(cleaned, parsed)
		reports = append(reports, report)
	}

	return Result{
		Table:  table.Concat(opts.TargetColumns, cleaned),
		Chunks: reports,
	}
}

// BuildPrompt renders the instruction block for one chunk.
func BuildPrompt(chunk table.Table, opts Options) string {
	cols := strings.Join(opts.TargetColumns, ",")

	sampleSection := ""
	if opts.Sample != nil {
		sampleSection = fmt.Sprintf(models.SamplePromptSection, opts.Sample.CSV())
	}

	return fmt.Sprintf(models.CleanPromptTemplate, cols, cols, sampleSection, chunk.CSV(), opts.AdditionalPrompt)
}
