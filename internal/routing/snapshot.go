package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the immutable, edge-local view of the routing table. The edge
// router performs pure map lookups against it; replication replaces the
// whole snapshot out-of-band rather than mutating it in place.
type Snapshot struct {
	entries map[string]string
}

// NewSnapshot copies entries into an immutable snapshot.
func NewSnapshot(entries map[string]string) *Snapshot {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Snapshot{entries: copied}
}

// Lookup returns the storage prefix for a routing key.
func (s *Snapshot) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	value, ok := s.entries[key]
	return value, ok
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// LoadSnapshotFile reads a YAML key -> prefix dump, as produced by KV
// namespace exports, for local edge serving.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	for key, value := range entries {
		if err := ValidateEntry(key, value); err != nil {
			return nil, fmt.Errorf("snapshot entry %q: %w", key, err)
		}
	}

	return NewSnapshot(entries), nil
}
