package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

// ImageStore persists an uploaded photo and returns a reference to it.
// osmID and coords are optional and only shape the stored name.
type ImageStore interface {
	Store(ctx context.Context, data []byte, ext string, osmID *int64, coords *model.Coordinates) (string, error)
}

// FileSystem stores photos verbatim under a single upload directory and
// returns absolute paths.
type FileSystem struct {
	baseDir string
	now     func() time.Time
}

// NewFileSystem creates a filesystem image store. The directory is created
// lazily on the first Store, so a read-only deployment that never receives
// photos still starts.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	return &FileSystem{baseDir: abs, now: time.Now}, nil
}

// Dir returns the absolute upload directory.
func (fs *FileSystem) Dir() string { return fs.baseDir }

func (fs *FileSystem) Store(_ context.Context, data []byte, ext string, osmID *int64, coords *model.Coordinates) (string, error) {
	if err := os.MkdirAll(fs.baseDir, 0755); err != nil {
		return "", apperr.LocalResource("OpenStreetMap gateway cannot prepare the uploads directory", err)
	}

	path := filepath.Join(fs.baseDir, imageName(osmID, coords, ext, fs.now()))
	// O_EXCL: never replace an earlier upload.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", err)
	}
	if err := f.Close(); err != nil {
		return "", apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", err)
	}
	return path, nil
}

// imageSeq disambiguates uploads landing in the same microsecond.
var imageSeq atomic.Uint64

// imageName builds "osm-<id>_<lat>-<lon>_<timestamp>_<seq>.<ext>", leaving
// out whichever of the id and coordinates is unknown.
func imageName(osmID *int64, coords *model.Coordinates, ext string, now time.Time) string {
	var parts []string
	if osmID != nil {
		parts = append(parts, fmt.Sprintf("osm-%d", *osmID))
	}
	if coords != nil {
		parts = append(parts, fmt.Sprintf("%.6f-%.6f", coords.Lat, coords.Lon))
	}
	if len(parts) == 0 {
		parts = append(parts, "photo")
	}

	stamp := strings.Replace(now.UTC().Format("20060102150405.000000"), ".", "", 1)
	parts = append(parts, stamp, fmt.Sprintf("%d", imageSeq.Add(1)))

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return strings.Join(parts, "_") + "." + ext
}

// NewImageStore picks the photo store for the configured backend.
func NewImageStore(cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Backend {
	case "s3":
		s3, err := NewS3ImageStore(cfg.S3, "uploads")
		if err != nil {
			return nil, fmt.Errorf("creating s3 image store: %w", err)
		}
		return s3, nil
	case "", "filesystem":
		return NewFileSystem(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
