package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"data-cleaner/internal/audit"
	"data-cleaner/internal/cleaner"
	"data-cleaner/internal/config"
	"data-cleaner/internal/graph"
	"data-cleaner/internal/helper"
	"data-cleaner/internal/llmservice"
	"data-cleaner/internal/modelfile"
	"data-cleaner/internal/report"
	"data-cleaner/internal/table"
)

const defaultConfigPath = "./configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "data-cleaner",
	Short: "LLM-backed table cleaning and model graph rendering",
}

var (
	cleanFile      string
	cleanSample    string
	cleanColumns   string
	cleanPrompt    string
	cleanModel     string
	cleanChunkSize int
	cleanOut       string
	cleanReport    string
	cleanPreview   int
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reformat a messy table into the target columns via a local LLM",
	Run: func(cmd *cobra.Command, args []string) {
		runClean(cmd.Context())
	},
}

var (
	graphModelFile string
	graphOut       string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render a trained model's layer graph to an image",
	Run: func(cmd *cobra.Command, args []string) {
		runGraph()
	},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config file")

	cleanCmd.Flags().StringVar(&cleanFile, "file", "Mountain.csv", "Path to the source table")
	cleanCmd.Flags().StringVar(&cleanSample, "sample", "", "Path to an example table showing the desired format")
	cleanCmd.Flags().StringVar(&cleanColumns, "columns", "", "Comma-separated target column names (required)")
	cleanCmd.Flags().StringVar(&cleanPrompt, "prompt", "", "Additional instructions appended to every chunk prompt")
	cleanCmd.Flags().StringVar(&cleanModel, "model", "", "Model to use (defaults to the configured model)")
	cleanCmd.Flags().IntVar(&cleanChunkSize, "chunk-size", 0, "Rows per chunk (defaults to the configured chunk size)")
	cleanCmd.Flags().StringVar(&cleanOut, "out", "", "Write the cleaned table to this CSV file")
	cleanCmd.Flags().StringVar(&cleanReport, "report", "", "Write a run report to this file (.md or .html)")
	cleanCmd.Flags().IntVar(&cleanPreview, "preview", 5, "Rows of the cleaned table to print")
	cleanCmd.MarkFlagRequired("columns")

	graphCmd.Flags().StringVar(&graphModelFile, "model-file", "model.keras", "Path to the trained model artifact")
	graphCmd.Flags().StringVar(&graphOut, "out", "model.png", "Path of the rendered diagram")

	rootCmd.AddCommand(cleanCmd, graphCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) && configPath == defaultConfigPath {
			log.Debug().Msg("No config file, using defaults")
			return config.Default()
		}
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")
	return cfg
}

func runClean(ctx context.Context) {
	cfg := loadConfig()

	src, err := table.ReadFile(cleanFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading source table")
	}

	opts := cleaner.Options{
		TargetColumns:    splitColumns(cleanColumns),
		AdditionalPrompt: cleanPrompt,
		Model:            cleanModel,
		ChunkSize:        cleanChunkSize,
	}
	if opts.Model == "" {
		opts.Model = cfg.LLM.Model
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = cfg.Clean.ChunkSize
	}
	if len(opts.TargetColumns) == 0 {
		log.Fatal().Msg("Please provide at least one target column via --columns")
	}

	if cleanSample != "" {
		sample, err := table.ReadFile(cleanSample)
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading sample table")
		}
		sample = sample.DropEmptyRows()
		opts.Sample = &sample
	}

	runID, err := helper.GenerateUUID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating run id")
	}

	log.Info().
		Str("run_id", runID).
		Int("rows", src.NumRows()).
		Int("chunk_size", opts.ChunkSize).
		Str("model", opts.Model).
		Msg("Cleaning table")

	res := cleaner.Clean(ctx, llmservice.New(&cfg.LLM), src, opts)

	log.Info().
		Int("chunks", len(res.Chunks)).
		Int("failed_chunks", res.Failed()).
		Int("output_rows", res.Table.NumRows()).
		Msg("Cleaning finished")

	if cleanPreview > 0 {
		fmt.Print(res.Table.Head(cleanPreview).CSV())
	}

	if cleanOut != "" {
		if err := table.WriteCSV(res.Table, cleanOut); err != nil {
			log.Fatal().Err(err).Msg("Error writing cleaned table")
		}
		log.Info().Str("path", cleanOut).Msg("Wrote cleaned table")
	}

	if cleanReport != "" {
		if err := report.Write(runID, res, cleanReport); err != nil {
			log.Error().Err(err).Msg("Error writing run report")
		} else {
			log.Info().Str("path", cleanReport).Msg("Wrote run report")
		}
	}

	if cfg.Audit.DSN != "" {
		recordAudit(ctx, cfg, runID, opts, res)
	}
}

// recordAudit persists the run outcome; audit failures never affect the
// cleaned table.
func recordAudit(ctx context.Context, cfg *config.Config, runID string, opts cleaner.Options, res cleaner.Result) {
	sqldb, err := audit.ConnectDB(&cfg.Audit)
	if err != nil {
		log.Error().Err(err).Msg("Error connecting to audit database")
		return
	}
	db := audit.NewDB(sqldb, cfg.Audit.Debug)
	defer db.Close()

	if err := audit.InitDB(ctx, db); err != nil {
		log.Error().Err(err).Msg("Error initializing audit database")
		return
	}
	if err := audit.RecordRun(ctx, db, runID, opts, res); err != nil {
		log.Error().Err(err).Msg("Error recording audit run")
		return
	}
	log.Info().Str("run_id", runID).Msg("Recorded audit run")
}

func runGraph() {
	model, err := modelfile.Load(graphModelFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading model")
	}

	log.Info().
		Str("model", model.Name).
		Str("class", model.Class).
		Int("layers", len(model.Layers)).
		Msg("Loaded model")

	if err := graph.Render(model, graphOut); err != nil {
		log.Fatal().Err(err).Msg("Error rendering model graph")
	}
	log.Info().Str("path", graphOut).Msg("Wrote model graph")
}

func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
