package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage, so
// that identical payloads always produce identical rows.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := artifact.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalDependencies converts dependencies to a JSON array TEXT.
func marshalDependencies(deps []artifact.Reference) (string, error) {
	if len(deps) == 0 {
		return "[]", nil
	}
	data, err := artifact.MarshalCanonical(deps)
	if err != nil {
		return "", fmt.Errorf("marshal dependencies: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses payload TEXT. Numbers are kept as json.Number so
// that a reloaded payload hashes exactly as the declared one.
func unmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// unmarshalDependencies parses dependencies TEXT.
func unmarshalDependencies(data string) ([]artifact.Reference, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var deps []artifact.Reference
	if err := json.Unmarshal([]byte(data), &deps); err != nil {
		return nil, fmt.Errorf("unmarshal dependencies: %w", err)
	}
	return deps, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
