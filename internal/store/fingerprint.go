package store

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hopekit/targeting/internal/wire"
)

// Fingerprint hashes the canonical JSON of def. Two definitions that
// serialize identically share a fingerprint.
func Fingerprint(def wire.WireDefinition) (string, error) {
	blob, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("fingerprint definition: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(blob)), nil
}

func ensureCriteriaInitialized(def wire.WireDefinition) wire.WireDefinition {
	if def.Criteria == nil {
		def.Criteria = []wire.WireCriterion{}
	}
	return def
}
