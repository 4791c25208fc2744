package support

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// StoredAttachment describes where an uploaded file ended up.
type StoredAttachment struct {
	URI          string
	SizeBytes    int64
	RelativePath string
}

type AttachmentStorage interface {
	Save(ctx context.Context, relativePath string, data []byte) (*StoredAttachment, error)
	OffloadOlderThan(ctx context.Context, age time.Duration, archivePath string) ([]string, error)
}

// LocalAttachmentStorage keeps attachments on the local filesystem under a
// single base directory. Backlog gauges track the total file count and bytes
// under that directory.
type LocalAttachmentStorage struct {
	basePath string
	baseURL  string
	log      *logger.Logger
	metrics  *observability.Metrics
}

func NewLocalAttachmentStorage(basePath, baseURL string, baseLog *logger.Logger, metrics *observability.Metrics) (*LocalAttachmentStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("attachment base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	storage := &LocalAttachmentStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      baseLog.With("service", "AttachmentStorage"),
		metrics:  metrics,
	}
	storage.refreshBacklogGauges()
	return storage, nil
}

func (ls *LocalAttachmentStorage) Save(ctx context.Context, relativePath string, data []byte) (*StoredAttachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	safeRelative := strings.TrimLeft(relativePath, "/")
	target := filepath.Join(ls.basePath, filepath.FromSlash(safeRelative))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create attachment subdir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	ls.metrics.IncAttachmentStored()
	ls.refreshBacklogGauges()
	return &StoredAttachment{
		URI:          ls.buildURI(safeRelative),
		SizeBytes:    int64(len(data)),
		RelativePath: safeRelative,
	}, nil
}

// OffloadOlderThan moves attachments whose mtime is older than the cutoff
// into the archive directory, preserving relative paths. The archive defaults
// to <basePath>/archive. Returns the destination paths of everything moved.
func (ls *LocalAttachmentStorage) OffloadOlderThan(ctx context.Context, age time.Duration, archivePath string) ([]string, error) {
	if age <= 0 {
		return nil, fmt.Errorf("age must be a positive duration")
	}
	if archivePath == "" {
		archivePath = filepath.Join(ls.basePath, "archive")
	}
	cutoff := time.Now().Add(-age)

	var moved []string
	err := filepath.WalkDir(ls.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == archivePath {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		relative, err := filepath.Rel(ls.basePath, path)
		if err != nil {
			return nil
		}
		destination := filepath.Join(archivePath, relative)
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return nil
		}
		if err := os.Rename(path, destination); err != nil {
			ls.log.Warn("attachment offload failed", "path", path, "error", err)
			return nil
		}
		moved = append(moved, destination)
		return nil
	})
	ls.refreshBacklogGauges()
	if err != nil {
		return moved, err
	}
	return moved, nil
}

func (ls *LocalAttachmentStorage) buildURI(relativePath string) string {
	if ls.baseURL != "" {
		return ls.baseURL + "/" + relativePath
	}
	return relativePath
}

func (ls *LocalAttachmentStorage) refreshBacklogGauges() {
	var totalFiles, totalBytes int64
	_ = filepath.WalkDir(ls.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		totalFiles++
		totalBytes += info.Size()
		return nil
	})
	ls.metrics.SetAttachmentBacklog(float64(totalFiles), float64(totalBytes))
}
