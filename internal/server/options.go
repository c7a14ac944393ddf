package server

import (
	"errors"
	"strings"
)

// Options configures server creation.
type Options struct {
	// StorageDir is the root directory for uploads and repaired
	// artifacts.
	StorageDir string
	// MaxUploadMB caps the size of an uploaded capture. Zero selects
	// the default of 512 MiB.
	MaxUploadMB int
}

func (o Options) validate() error {
	if strings.TrimSpace(o.StorageDir) == "" {
		return errors.New("storage dir is empty")
	}
	if o.MaxUploadMB < 0 {
		return errors.New("max upload size is negative")
	}
	return nil
}

func (o Options) maxUploadBytes() int64 {
	if o.MaxUploadMB <= 0 {
		return 512 << 20
	}
	return int64(o.MaxUploadMB) << 20
}
