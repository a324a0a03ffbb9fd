package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainKey     = "artisync/key/v1"
	DomainContent = "artisync/content/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeyOf computes the upsert key of an artifact from its kind and location.
// It does not depend on content, so an edited declaration keeps its key.
func KeyOf(kind, location string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"kind":     kind,
		"location": location,
	})
	if err != nil {
		return "", fmt.Errorf("KeyOf: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainKey, canonical), nil
}

// HashOf fingerprints the declared content of an artifact.
// Lifecycle metadata and timestamps are excluded.
func HashOf(a Artifact) (string, error) {
	deps := make([]any, len(a.Dependencies))
	for i, d := range a.Dependencies {
		deps[i] = string(d)
	}
	payload := a.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"name":         a.Name,
		"payload":      payload,
		"dependencies": deps,
	})
	if err != nil {
		return "", fmt.Errorf("HashOf %s: failed to marshal: %w", a.Location, err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}
