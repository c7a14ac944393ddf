package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/genonullfree/dtrunc/internal/repair"
)

// Finding describes one repaired record.
type Finding struct {
	RecordIndex int    `json:"recordIndex"`
	Offset      int64  `json:"offset"`
	CapLen      uint32 `json:"capLen"`
	OrigLen     uint32 `json:"origLen"`
	PaddedBytes uint32 `json:"paddedBytes"`
}

// Report is the persisted outcome of a repair run.
type Report struct {
	CreatedAt    time.Time      `json:"createdAt"`
	Input        string         `json:"input"`
	Output       string         `json:"output"`
	InputSha256  string         `json:"inputSha256,omitempty"`
	OutputSha256 string         `json:"outputSha256,omitempty"`
	Summary      repair.Summary `json:"summary"`
	Findings     []Finding      `json:"findings,omitempty"`
}

// SaveJSON writes the report as indented JSON.
func SaveJSON(rep Report, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

// LoadJSON reads a report previously written by SaveJSON.
func LoadJSON(path string) (Report, error) {
	var rep Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}
