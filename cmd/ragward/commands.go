package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/config"
	"github.com/perimeterlab/ragward/internal/guard"
	"github.com/perimeterlab/ragward/internal/ingest"
	"github.com/perimeterlab/ragward/internal/ollama"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Admit documents into the corpus through the ingestion gate",
	Long: `Admit documents into the corpus through the ingestion gate.

Duplicate content is skipped, every document is trust-classified by its
source name, and each decision is recorded in the audit ledger.

Examples:
  ragward ingest notes.md handbook.pdf
  ragward ingest --dir ./corpus`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" && len(args) == 0 {
			return fmt.Errorf("give file paths or --dir")
		}

		var docs []ingest.Document
		if dir != "" {
			loaded, err := ingest.LoadDir(dir)
			if err != nil {
				return fmt.Errorf("loading %s: %w", dir, err)
			}
			docs = append(docs, loaded...)
		}
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			docs = append(docs, ingest.Document{Source: filepath.Base(path), Text: string(data)})
		}
		if len(docs) == 0 {
			printWarning("nothing to ingest")
			return nil
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.gate.Ingest(cmd.Context(), docs)
		if err != nil {
			return err
		}

		printSuccess("Ingested %d document(s), %d chunk(s); skipped %d duplicate(s)",
			len(result.Added), result.NewChunks, len(result.Skipped))
		return nil
	},
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Run a guarded query against the corpus",
	Long: `Run a guarded query against the corpus.

The question is answered from retrieved context. Drift, injection and
policy-mutation detections are printed as warnings; they never block
the answer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.pipeline.Query(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, alert := range ans.Alerts {
			printWarning("%s", alert)
		}

		showSources, _ := cmd.Flags().GetBool("sources")
		if showSources {
			for _, c := range ans.Chunks {
				printStatus("Source", "%s (trust %s, score %.3f)", c.Source, c.TrustLevel, c.Score)
			}
		}

		fmt.Println(ans.Text)
		return nil
	},
}

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan stored embeddings for norm outliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.vectors.Count()
		if err != nil {
			return err
		}
		printStep("Scanning %d stored vector(s)...", count)

		findings, err := a.scanner.Scan()
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			printSuccess("No embedding outliers found")
			return nil
		}

		for _, f := range findings {
			printWarning("outlier: %s chunk %s (norm %.2f, z-score %.2f)", f.Source, f.ID, f.Norm, f.ZScore)
		}
		return nil
	},
}

// --- baseline ---

var baselineCmd = &cobra.Command{
	Use:   "baseline [files...]",
	Short: "Build the semantic drift baseline from reference documents",
	Long: `Build the semantic drift baseline from reference documents.

The given files should describe the corpus's expected topic. Their
embeddings are averaged and stored; guarded queries then compare
retrieved context against this baseline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var texts []string
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if text := strings.TrimSpace(string(data)); text != "" {
				texts = append(texts, text)
			}
		}
		if len(texts) == 0 {
			return fmt.Errorf("all baseline files are empty")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		baseline, err := guard.BuildBaseline(cmd.Context(), a.embedder, texts)
		if err != nil {
			return err
		}
		if err := guard.SaveBaseline(a.cfg.BaselinePath(), baseline); err != nil {
			return err
		}

		printSuccess("Baseline built from %d document(s), saved to %s", len(texts), a.cfg.BaselinePath())
		return nil
	},
}

// --- audit ---

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit ledger events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := audit.Tail(cfg.LedgerPath(), limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			printStatus("Ledger", "empty (%s)", cfg.LedgerPath())
			return nil
		}

		for _, e := range events {
			line := fmt.Sprintf("%s  %-10s %-10s %s", e.Timestamp, e.Event, e.Status, e.Source)
			if e.Event == audit.EventIngest {
				fmt.Println(colorize(colorGreen, line))
			} else {
				fmt.Println(colorize(colorYellow, line))
			}
		}
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and backend status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		initLogging(cfg)

		client := ollama.New(cfg.Ollama.BaseURL)
		if client.IsRunning(cmd.Context()) {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
			for _, model := range []string{cfg.Ollama.ChatModel, cfg.Ollama.AuditModel, cfg.Ollama.EmbedModel} {
				if client.HasModel(cmd.Context(), model) {
					printStatus("Model", "%s available", model)
				} else {
					printStatus("Model", "%s MISSING (ollama pull %s)", model, model)
				}
			}
		} else {
			printStatus("Ollama", "not running")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.store.CountDocuments()
		if err != nil {
			return err
		}
		chunks, err := a.vectors.Count()
		if err != nil {
			return err
		}
		printStatus("Documents", "%d", docs)
		printStatus("Chunks", "%d", chunks)
		if _, err := guard.LoadBaseline(cfg.BaselinePath()); err == nil {
			printStatus("Baseline", "present")
		} else {
			printStatus("Baseline", "not built (run: ragward baseline <files>)")
		}
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("dir", "", "directory to load .txt, .md, .pdf and .html files from")
	queryCmd.Flags().Bool("sources", false, "print retrieved sources before the answer")
	auditCmd.Flags().Int("limit", 50, "maximum number of events to show")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
