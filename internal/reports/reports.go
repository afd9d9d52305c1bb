// Package reports locates the raw JUnit report a pipeline run produced.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/animus-labs/tfbridge/internal/platform/objectstore"
)

const DefaultPathTemplate = "/results/{run_id}/junit.xml"

// ErrNotFound means the run has not produced a report (yet).
var ErrNotFound = errors.New("test report not found")

type Source interface {
	Open(ctx context.Context, runID string) (io.ReadCloser, error)
}

func checkRunID(runID string) error {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return errors.New("run id is required")
	}
	if strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

// FileSource reads reports from a results volume shared with the pipeline.
type FileSource struct {
	template string
}

func NewFileSource(template string) (*FileSource, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultPathTemplate
	}
	if !strings.Contains(template, "{run_id}") {
		return nil, fmt.Errorf("report path template must contain {run_id}: %q", template)
	}
	return &FileSource{template: template}, nil
}

func (s *FileSource) Path(runID string) string {
	return strings.ReplaceAll(s.template, "{run_id}", strings.TrimSpace(runID))
}

func (s *FileSource) Open(_ context.Context, runID string) (io.ReadCloser, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	return f, nil
}

// ObjectSource reads reports uploaded to an S3-compatible bucket.
type ObjectSource struct {
	client *minio.Client
	cfg    objectstore.Config
}

func NewObjectSource(client *minio.Client, cfg objectstore.Config) (*ObjectSource, error) {
	if client == nil {
		return nil, errors.New("object store client is required")
	}
	if strings.TrimSpace(cfg.BucketReports) == "" {
		return nil, errors.New("reports bucket is required")
	}
	return &ObjectSource{client: client, cfg: cfg}, nil
}

func (s *ObjectSource) Open(ctx context.Context, runID string) (io.ReadCloser, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	key := s.cfg.Key(runID)
	obj, err := s.client.GetObject(ctx, s.cfg.BucketReports, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, nil
}
