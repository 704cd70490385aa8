package trust

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Manifest classifies sources from an operator-provided attestation file.
// The manifest carries an HMAC-SHA256 signature over its entries so a
// poisoned document cannot promote itself by editing the file; the key is
// supplied out of band via RAGWARD_MANIFEST_KEY.
type Manifest struct {
	levels map[string]Level
}

type manifestFile struct {
	Sources   map[string]string `json:"sources"`
	Signature string            `json:"signature,omitempty"`
}

// LoadManifest reads and verifies a manifest file. Verification is skipped
// when no key is configured in the environment; the manifest then degrades
// to a plain registry.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trust manifest: %w", err)
	}

	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing trust manifest: %w", err)
	}

	if key := os.Getenv("RAGWARD_MANIFEST_KEY"); key != "" {
		if mf.Signature == "" {
			return nil, fmt.Errorf("trust manifest %s is unsigned but a manifest key is configured", path)
		}
		want := signEntries(mf.Sources, []byte(key))
		got, err := hex.DecodeString(mf.Signature)
		if err != nil || !hmac.Equal(want, got) {
			return nil, fmt.Errorf("trust manifest %s failed signature verification", path)
		}
	}

	levels := make(map[string]Level, len(mf.Sources))
	for src, lvl := range mf.Sources {
		switch Level(lvl) {
		case High, Low:
			levels[src] = Level(lvl)
		default:
			return nil, fmt.Errorf("trust manifest %s: invalid level %q for %q", path, lvl, src)
		}
	}
	return &Manifest{levels: levels}, nil
}

// Classify returns the attested level, or Low for sources the manifest
// does not mention.
func (m *Manifest) Classify(source string) Level {
	if lvl, ok := m.levels[source]; ok {
		return lvl
	}
	return Low
}

// SignEntries produces the hex HMAC-SHA256 signature for a source map,
// used by operators to sign a manifest file.
func SignEntries(sources map[string]string, key []byte) string {
	return hex.EncodeToString(signEntries(sources, key))
}

func signEntries(sources map[string]string, key []byte) []byte {
	// Canonical form: sorted "source=level" lines.
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha256.New, key)
	for _, k := range keys {
		fmt.Fprintf(mac, "%s=%s\n", k, sources[k])
	}
	return mac.Sum(nil)
}
