package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/opencivic-data/heron/internal/domain"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to a file, creating or truncating it.
func SaveJSON(path string, r *domain.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, r); err != nil {
		return err
	}
	return f.Close()
}

// ParseJSON decodes a report previously written by WriteJSON.
func ParseJSON(data []byte) (*domain.Report, error) {
	var r domain.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
