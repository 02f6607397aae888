package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/erp/salesetl/internal/domain/bulk"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
)

// NewWorkbookOpener opens s3:// sources through s and everything else from
// the local filesystem. A nil s rejects s3:// sources.
func NewWorkbookOpener(s *S3Storage) importapp.WorkbookOpener {
	return func(ctx context.Context, source string) (importapp.Workbook, error) {
		if !IsObjectURI(source) {
			return importapp.OpenLocalWorkbook(ctx, source)
		}
		loc, err := ParseObjectURI(source)
		if err != nil {
			return nil, bulk.NewConfigurationError("source", "%v", err)
		}
		if s == nil {
			return nil, bulk.NewConfigurationError("storage", "object storage is not configured for %s", loc)
		}

		data, err := s.Download(ctx, loc)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				return nil, fmt.Errorf("%w: %s", sheetimport.ErrSourceNotFound, loc)
			}
			return nil, err
		}
		wb, err := sheetimport.OpenWorkbookReader(bytes.NewReader(data), loc.String())
		if err != nil {
			return nil, err
		}
		return wb, nil
	}
}
