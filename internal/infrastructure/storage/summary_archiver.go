package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummaryArchiver uploads each run summary as JSON under a key prefix
type SummaryArchiver struct {
	storage *S3Storage
	prefix  string
	logger  *zap.Logger
}

var _ importapp.SummaryArchiver = (*SummaryArchiver)(nil)

// NewSummaryArchiver creates an archiver writing below prefix
func NewSummaryArchiver(storage *S3Storage, prefix string, logger *zap.Logger) *SummaryArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryArchiver{storage: storage, prefix: prefix, logger: logger}
}

// Archive uploads summary and returns its s3:// location
func (a *SummaryArchiver) Archive(ctx context.Context, summary *importapp.RunSummary) (string, error) {
	var buf bytes.Buffer
	if err := summary.WriteJSON(&buf); err != nil {
		return "", fmt.Errorf("encode run summary: %w", err)
	}

	key := a.key(summary)
	loc, err := a.storage.Upload(ctx, key, buf.Bytes(), "application/json")
	if err != nil {
		return "", err
	}
	a.logger.Info("Archived run summary", zap.Stringer("location", loc))
	return loc.String(), nil
}

// key is <prefix>/<yyyy>/<mm>/<dd>/<run id>.json; runs without an id fall
// back to their start time
func (a *SummaryArchiver) key(summary *importapp.RunSummary) string {
	started := summary.StartedAt.UTC()
	name := summary.RunID.String()
	if summary.RunID == uuid.Nil {
		name = "failed-" + started.Format("20060102T150405.000000000Z")
	}
	return path.Join(a.prefix, started.Format("2006/01/02"), name+".json")
}
