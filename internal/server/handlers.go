package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/genonullfree/dtrunc/internal/common"
	"github.com/genonullfree/dtrunc/internal/pcap"
	"github.com/genonullfree/dtrunc/internal/repair"
)

// Artifact is a stored file produced or accepted by the service.
type Artifact struct {
	ID          string
	Path        string
	DisplayName string
	ContentType string
	Kind        string
	Size        int64
	CreatedAt   time.Time
}

// ArtifactRef is the JSON shape returned to clients.
type ArtifactRef struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	Sha256      string    `json:"sha256,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadUrl"`
}

// RepairResponse is the body returned by the /repair endpoint.
type RepairResponse struct {
	Summary  repair.Summary `json:"summary"`
	Artifact ArtifactRef    `json:"artifact"`
}

// Server exposes capture repair over HTTP.
type Server struct {
	storageDir   string
	artifactsDir string
	maxUpload    int64
	metrics      *Metrics

	mu        sync.Mutex
	artifacts map[string]Artifact
}

// NewServer prepares storage directories and the metrics registry.
func NewServer(opts Options) (*Server, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	artifactsDir := filepath.Join(opts.StorageDir, "artifacts")
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts dir: %w", err)
	}
	return &Server{
		storageDir:   opts.StorageDir,
		artifactsDir: artifactsDir,
		maxUpload:    opts.maxUploadBytes(),
		metrics:      NewMetrics(),
		artifacts:    make(map[string]Artifact),
	}, nil
}

// Metrics returns the server's Prometheus instruments.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		http.Error(w, fmt.Sprintf("parse multipart: %v", err), http.StatusBadRequest)
		return
	}
	fh := firstUploadedFile(r.MultipartForm)
	if fh == nil {
		http.Error(w, "no capture file provided", http.StatusBadRequest)
		return
	}
	input, err := readUploadedFile(fh, s.maxUpload)
	if err != nil {
		http.Error(w, fmt.Sprintf("read upload %s: %v", fh.Filename, err), http.StatusBadRequest)
		return
	}

	out, sum, err := repair.Repair(input, repair.Options{})
	if err != nil {
		s.metrics.recordRepair(statusError, time.Since(started), 0, 0)
		switch {
		case errors.Is(err, pcap.ErrNotPcap):
			http.Error(w, fmt.Sprintf("%s cannot be loaded as a pcap file", fh.Filename), http.StatusBadRequest)
		case errors.Is(err, repair.ErrInvalidLengths), errors.Is(err, repair.ErrSizeOverflow):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	art, err := s.addArtifact(out, repairedName(fh.Filename), "application/vnd.tcpdump.pcap", "repaired")
	if err != nil {
		s.metrics.recordRepair(statusError, time.Since(started), 0, 0)
		http.Error(w, fmt.Sprintf("store artifact: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.recordRepair(statusSuccess, time.Since(started), sum.Repaired, sum.OutputBytes-sum.InputBytes)
	common.Logf("repaired %s: %d of %d records, %s -> %s",
		fh.Filename, sum.Repaired, sum.Records,
		common.FormatBytes(sum.InputBytes), common.FormatBytes(sum.OutputBytes))

	writeJSON(w, http.StatusOK, RepairResponse{Summary: sum, Artifact: toRef(art, out)})
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := filepath.Base(r.URL.Path)
	art, ok := s.getArtifact(id)
	if !ok {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.DisplayName))
	http.ServeFile(w, r, art.Path)
}

func (s *Server) addArtifact(data []byte, displayName, contentType, kind string) (Artifact, error) {
	id, err := randomID()
	if err != nil {
		return Artifact{}, err
	}
	path := filepath.Join(s.artifactsDir, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, err
	}
	art := Artifact{
		ID:          id,
		Path:        path,
		DisplayName: displayName,
		ContentType: contentType,
		Kind:        kind,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.artifacts[id] = art
	s.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	art, ok := s.artifacts[id]
	return art, ok
}

func firstUploadedFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	for _, files := range form.File {
		for _, fh := range files {
			if fh != nil {
				return fh
			}
		}
	}
	return nil
}

func readUploadedFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("upload exceeds %d byte limit", limit)
	}
	return data, nil
}

func repairedName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "capture.pcap"
	}
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)] + ".fixed" + ext
}

func toRef(art Artifact, data []byte) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		DisplayName: art.DisplayName,
		Kind:        art.Kind,
		Size:        art.Size,
		Sha256:      common.Sha256OfBytes(data),
		CreatedAt:   art.CreatedAt,
		DownloadURL: "/artifacts/" + art.ID,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		common.Logf("write json response: %v", err)
	}
}

func randomID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
