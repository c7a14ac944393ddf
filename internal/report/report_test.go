package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genonullfree/dtrunc/internal/repair"
)

func sampleReport() Report {
	return Report{
		CreatedAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Input:        "capture.pcap",
		Output:       "output.pcap",
		InputSha256:  "aabbcc",
		OutputSha256: "ddeeff",
		Summary: repair.Summary{
			Records:     3,
			Repaired:    1,
			InputBytes:  100,
			OutputBytes: 106,
		},
		Findings: []Finding{
			{RecordIndex: 1, Offset: 46, CapLen: 4, OrigLen: 10, PaddedBytes: 6},
		},
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	want := sampleReport()
	if err := SaveJSON(want, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if got.Summary != want.Summary {
		t.Fatalf("summary = %+v, want %+v", got.Summary, want.Summary)
	}
	if len(got.Findings) != 1 || got.Findings[0] != want.Findings[0] {
		t.Fatalf("findings = %+v, want %+v", got.Findings, want.Findings)
	}
	if got.OutputSha256 != want.OutputSha256 {
		t.Fatalf("output hash = %q, want %q", got.OutputSha256, want.OutputSha256)
	}
}

func TestLoadJSONRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSavePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := SavePDF(sampleReport(), path); err != nil {
		t.Fatalf("SavePDF failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat pdf: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("pdf file is empty")
	}
}

func TestSavePDFNoFindings(t *testing.T) {
	rep := sampleReport()
	rep.Findings = nil
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := SavePDF(rep, path); err != nil {
		t.Fatalf("SavePDF failed: %v", err)
	}
}

func TestHashToQR(t *testing.T) {
	png, err := HashToQR("deadbeef00112233", 128)
	if err != nil {
		t.Fatalf("HashToQR failed: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("qr png is empty")
	}
}

func TestHashToQREmpty(t *testing.T) {
	if _, err := HashToQR("   ", 128); err == nil {
		t.Fatal("expected error for empty hash")
	}
}
