package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// writeArtifact assigns the run a UUID, stamps it into the document via
// setID, and writes the document as indented JSON under dir. It returns
// the artifact path.
func writeArtifact(dir, kind string, doc any, setID func(string)) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	runID := uuid.NewString()
	setID(runID)

	name := fmt.Sprintf("%s_%s_%s.json", kind, time.Now().Format("20060102_150405"), runID[:8])
	path := filepath.Join(dir, name)

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
