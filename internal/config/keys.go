package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	// kList is a comma-separated string list.
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "RAGWARD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "RAGWARD_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "ollama.base_url", typ: kString, env: "RAGWARD_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.chat_model", typ: kString, env: "RAGWARD_OLLAMA_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.ChatModel },
	},
	{
		key: "ollama.audit_model", typ: kString, env: "RAGWARD_OLLAMA_AUDIT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.AuditModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.AuditModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "RAGWARD_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "RAGWARD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "RAGWARD_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "retrieval.reranking_enabled", typ: kBool, env: "RAGWARD_RETRIEVAL_RERANKING_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.RerankingEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Retrieval.RerankingEnabled },
	},
	{
		key: "ingest.chunk_size", typ: kInt, env: "RAGWARD_INGEST_CHUNK_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Ingest.ChunkSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.ChunkSize },
	},
	{
		key: "ingest.chunk_overlap", typ: kInt, env: "RAGWARD_INGEST_CHUNK_OVERLAP",
		apply:   func(cfg *Config, v any) { cfg.Ingest.ChunkOverlap = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.ChunkOverlap },
	},
	{
		key: "trust.mode", typ: kString, env: "RAGWARD_TRUST_MODE",
		apply:   func(cfg *Config, v any) { cfg.Trust.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Trust.Mode },
	},
	{
		key: "trust.markers", typ: kList, env: "RAGWARD_TRUST_MARKERS",
		apply:   func(cfg *Config, v any) { cfg.Trust.Markers = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Trust.Markers, ",") },
	},
	{
		key: "trust.allowlist", typ: kList, env: "RAGWARD_TRUST_ALLOWLIST",
		apply:   func(cfg *Config, v any) { cfg.Trust.Allowlist = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Trust.Allowlist, ",") },
	},
	{
		key: "trust.manifest_path", typ: kString, env: "RAGWARD_TRUST_MANIFEST_PATH",
		apply:   func(cfg *Config, v any) { cfg.Trust.ManifestPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Trust.ManifestPath },
	},
	{
		key: "guard.drift_floor", typ: kFloat, env: "RAGWARD_GUARD_DRIFT_FLOOR",
		apply:   func(cfg *Config, v any) { cfg.Guard.DriftFloor = v.(float64) },
		extract: func(cfg Config) any { return cfg.Guard.DriftFloor },
	},
	{
		key: "guard.blocklist", typ: kList, env: "RAGWARD_GUARD_BLOCKLIST",
		apply:   func(cfg *Config, v any) { cfg.Guard.Blocklist = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Guard.Blocklist, ",") },
	},
	{
		key: "guard.dominance_ratio", typ: kFloat, env: "RAGWARD_GUARD_DOMINANCE_RATIO",
		apply:   func(cfg *Config, v any) { cfg.Guard.DominanceRatio = v.(float64) },
		extract: func(cfg Config) any { return cfg.Guard.DominanceRatio },
	},
	{
		key: "guard.outlier_threshold", typ: kFloat, env: "RAGWARD_GUARD_OUTLIER_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Guard.OutlierThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Guard.OutlierThreshold },
	},
	{
		key: "mutation.red_flags", typ: kList, env: "RAGWARD_MUTATION_RED_FLAGS",
		apply:   func(cfg *Config, v any) { cfg.Mutation.RedFlags = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Mutation.RedFlags, ",") },
	},
	{
		key: "log.level", typ: kString, env: "RAGWARD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kList:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				s.apply(cfg, splitList(v))
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kList:
			s.apply(cfg, splitList(raw))
		}
	}
}
