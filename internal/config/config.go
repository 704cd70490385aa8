// Package config loads ragward configuration from a JSON file at
// $XDG_CONFIG_HOME/ragward/config.json with RAGWARD_* environment
// variables overriding file values. Guard thresholds live here rather
// than as hardcoded constants; the shipped defaults are lab-calibrated
// reference values, not production-ready ones.
package config

import "path/filepath"

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
	Trust     TrustConfig
	Guard     GuardConfig
	Mutation  MutationConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken protects the HTTP API when non-empty. Secret: environment
	// variable only, never written to the config file.
	APIToken string
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	AuditModel string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

type RetrievalConfig struct {
	TopK             int
	RerankingEnabled bool
}

type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type TrustConfig struct {
	// Mode selects the classifier: naming, allowlist, or manifest.
	Mode         string
	Markers      []string
	Allowlist    []string
	ManifestPath string
}

type GuardConfig struct {
	DriftFloor       float64
	Blocklist        []string
	DominanceRatio   float64
	OutlierThreshold float64
}

type MutationConfig struct {
	RedFlags []string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "mistral-nemo",
			AuditModel: "phi3.5",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			TopK:             4,
			RerankingEnabled: true,
		},
		Ingest: IngestConfig{
			ChunkSize:    1200,
			ChunkOverlap: 200,
		},
		Trust: TrustConfig{
			Mode: "naming",
		},
		Guard: GuardConfig{
			DriftFloor:       -0.40,
			DominanceRatio:   0.95,
			OutlierThreshold: 2.5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend, then applies
// RAGWARD_* environment overrides.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LedgerPath is the audit ledger location under the data directory.
func (c Config) LedgerPath() string {
	return filepath.Join(c.Storage.DataDir, "audit.jsonl")
}

// StatsPath is the retrieval stats file location under the data directory.
func (c Config) StatsPath() string {
	return filepath.Join(c.Storage.DataDir, "retrieval_stats.json")
}

// BaselinePath is the drift baseline location under the data directory.
func (c Config) BaselinePath() string {
	return filepath.Join(c.Storage.DataDir, "baseline.json")
}
