package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genonullfree/dtrunc/internal/pcap"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	srv, err := NewServer(Options{StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv, NewRouter(srv)
}

func buildCapture(records ...pcap.Record) []byte {
	hdr := pcap.Header{Magic: pcap.Magic, Major: 2, Minor: 4, SnapLen: 64, LinkType: 1}
	out := pcap.EncodeHeader(hdr)
	return append(out, pcap.EncodeRecords(records)...)
}

func multipartUpload(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHandleRepair(t *testing.T) {
	_, router := newTestServer(t)
	capture := buildCapture(pcap.Record{TsSec: 1000, CapLen: 4, OrigLen: 10, Payload: []byte{1, 2, 3, 4}})
	body, contentType := multipartUpload(t, "capture.pcap", capture)

	req := httptest.NewRequest(http.MethodPost, "/repair", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp RepairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary.Repaired != 1 || resp.Summary.Records != 1 {
		t.Fatalf("summary = %+v, want 1 of 1 repaired", resp.Summary)
	}
	if resp.Artifact.DisplayName != "capture.fixed.pcap" {
		t.Fatalf("artifact name = %q, want capture.fixed.pcap", resp.Artifact.DisplayName)
	}

	// The repaired artifact must be downloadable and complete.
	dlReq := httptest.NewRequest(http.MethodGet, resp.Artifact.DownloadURL, nil)
	dlRec := httptest.NewRecorder()
	router.ServeHTTP(dlRec, dlReq)
	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status = %d, want 200", dlRec.Code)
	}
	repaired, _ := pcap.ParseRecords(dlRec.Body.Bytes()[pcap.HeaderSize:])
	if len(repaired) != 1 {
		t.Fatalf("repaired records = %d, want 1", len(repaired))
	}
	if repaired[0].CapLen != repaired[0].OrigLen {
		t.Fatalf("artifact record still truncated: caplen=%d origlen=%d", repaired[0].CapLen, repaired[0].OrigLen)
	}
}

func TestHandleRepairRejectsBadMagic(t *testing.T) {
	_, router := newTestServer(t)
	body, contentType := multipartUpload(t, "junk.bin", []byte("this is not a capture file at all"))

	req := httptest.NewRequest(http.MethodPost, "/repair", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRepairRejectsInvalidLengths(t *testing.T) {
	_, router := newTestServer(t)
	capture := buildCapture(pcap.Record{CapLen: 20, OrigLen: 10, Payload: make([]byte, 20)})
	body, contentType := multipartUpload(t, "bad.pcap", capture)

	req := httptest.NewRequest(http.MethodPost, "/repair", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleRepairRequiresPost(t *testing.T) {
	_, router := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/repair", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestArtifactNotFound(t *testing.T) {
	_, router := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/artifacts/doesnotexist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "ok", opts: Options{StorageDir: "/tmp/x"}},
		{name: "empty dir", opts: Options{}, wantErr: true},
		{name: "negative upload", opts: Options{StorageDir: "/tmp/x", MaxUploadMB: -1}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
