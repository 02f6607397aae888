package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/config"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadBucketOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func newMockStorage(t *testing.T) (*S3Storage, *mockObjectAPI) {
	t.Helper()
	api := &mockObjectAPI{}
	s, err := NewS3Storage(&config.StorageConfig{
		Bucket:       "sales",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}, withClient(api), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { api.AssertExpectations(t) })
	return s, api
}

func keyIs(key string) any {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "sales" && aws.ToString(in.Key) == key
	})
}

func TestNewS3Storage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Storage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3Storage(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3Storage(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("bucket is optional for reading", func(t *testing.T) {
		s, err := NewS3Storage(&config.StorageConfig{AccessKey: "k", SecretKey: "s", Endpoint: "localhost:9000"})
		require.NoError(t, err)
		assert.Equal(t, "", s.Bucket())
	})

	t.Run("adds https prefix when SSL enabled", func(t *testing.T) {
		s, err := NewS3Storage(&config.StorageConfig{AccessKey: "k", SecretKey: "s", Endpoint: "minio:9000", UseSSL: true})
		require.NoError(t, err)
		require.NotNil(t, s)
	})
}

func TestParseObjectURI(t *testing.T) {
	tests := []struct {
		source  string
		want    ObjectURI
		wantErr bool
	}{
		{source: "s3://sales/2024/workbook.xlsx", want: ObjectURI{Bucket: "sales", Key: "2024/workbook.xlsx"}},
		{source: "  s3://b/k.xlsx ", want: ObjectURI{Bucket: "b", Key: "k.xlsx"}},
		{source: "s3://sales", wantErr: true},
		{source: "s3://sales/dir/", wantErr: true},
		{source: "s3:///key.xlsx", wantErr: true},
		{source: "/data/sales.xlsx", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := ParseObjectURI(tt.source)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Scheme+tt.want.Bucket+"/"+tt.want.Key, got.String())
		})
	}

	assert.True(t, IsObjectURI("s3://b/k"))
	assert.False(t, IsObjectURI("sales.xlsx"))
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket is left alone", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("HeadBucket", ctx, mock.Anything).Return(&s3.HeadBucketOutput{}, nil).Once()

		require.NoError(t, s.EnsureBucket(ctx))
		api.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("HeadBucket", ctx, mock.Anything).Return(nil, &types.NotFound{}).Once()
		api.On("CreateBucket", ctx, mock.MatchedBy(func(in *s3.CreateBucketInput) bool {
			return aws.ToString(in.Bucket) == "sales"
		})).Return(&s3.CreateBucketOutput{}, nil).Once()

		require.NoError(t, s.EnsureBucket(ctx))
	})

	t.Run("creation race is tolerated", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("HeadBucket", ctx, mock.Anything).Return(nil, &types.NoSuchBucket{}).Once()
		api.On("CreateBucket", ctx, mock.Anything).Return(nil, &types.BucketAlreadyOwnedByYou{}).Once()

		require.NoError(t, s.EnsureBucket(ctx))
	})

	t.Run("other errors are reported", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("HeadBucket", ctx, mock.Anything).Return(nil, errors.New("access denied")).Once()

		err := s.EnsureBucket(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestS3Storage_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("reads the object body", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("GetObject", ctx, keyIs("in/file.bin")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("payload"))}, nil).Once()

		data, err := s.Download(ctx, ObjectURI{Bucket: "sales", Key: "in/file.bin"})
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("missing key maps to ErrObjectNotFound", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("GetObject", ctx, keyIs("absent.xlsx")).Return(nil, &types.NoSuchKey{}).Once()

		_, err := s.Download(ctx, ObjectURI{Bucket: "sales", Key: "absent.xlsx"})
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("empty key is rejected before calling storage", func(t *testing.T) {
		s, _ := newMockStorage(t)
		_, err := s.Download(ctx, ObjectURI{Bucket: "sales"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage key is required")
	})
}

func TestS3Storage_ObjectExists(t *testing.T) {
	ctx := context.Background()
	s, api := newMockStorage(t)
	api.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "present"
	})).Return(&s3.HeadObjectOutput{}, nil).Once()
	api.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "absent"
	})).Return(nil, &types.NotFound{}).Once()

	ok, err := s.ObjectExists(ctx, ObjectURI{Bucket: "sales", Key: "present"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ObjectExists(ctx, ObjectURI{Bucket: "sales", Key: "absent"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func xlsxBytes(t *testing.T, sheets ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheets[0]))
	for _, name := range sheets[1:] {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWorkbookOpener(t *testing.T) {
	ctx := context.Background()

	t.Run("opens s3 sources from storage", func(t *testing.T) {
		s, api := newMockStorage(t)
		data := xlsxBytes(t, "Sales_Territory", "Customer")
		api.On("GetObject", ctx, keyIs("sales.xlsx")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil).Once()

		wb, err := NewWorkbookOpener(s)(ctx, "s3://sales/sales.xlsx")
		require.NoError(t, err)
		defer wb.Close()

		sw, ok := wb.(*sheetimport.Workbook)
		require.True(t, ok)
		assert.Equal(t, "s3://sales/sales.xlsx", sw.Source())
		assert.True(t, sw.HasSheet("Customer"))
	})

	t.Run("missing object is a missing source", func(t *testing.T) {
		s, api := newMockStorage(t)
		api.On("GetObject", ctx, keyIs("gone.xlsx")).Return(nil, &types.NoSuchKey{}).Once()

		_, err := NewWorkbookOpener(s)(ctx, "s3://sales/gone.xlsx")
		assert.ErrorIs(t, err, sheetimport.ErrSourceNotFound)
	})

	t.Run("s3 source without storage is a configuration error", func(t *testing.T) {
		_, err := NewWorkbookOpener(nil)(ctx, "s3://sales/sales.xlsx")
		var cerr *bulk.ConfigurationError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "storage", cerr.Setting)
	})

	t.Run("local paths bypass storage", func(t *testing.T) {
		_, err := NewWorkbookOpener(nil)(ctx, filepath.Join(t.TempDir(), "absent.xlsx"))
		assert.ErrorIs(t, err, sheetimport.ErrSourceNotFound)
	})
}

func TestSummaryArchiver_Archive(t *testing.T) {
	ctx := context.Background()
	s, api := newMockStorage(t)

	runID := uuid.MustParse("6f1c2b7e-4a43-4d2e-9a55-0c3c3f1d2a10")
	summary := &importapp.RunSummary{
		RunID:     runID,
		Source:    "sales.xlsx",
		Status:    bulk.RunStatusSuccess,
		StartedAt: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
	}

	var uploaded []byte
	api.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "sales" &&
			aws.ToString(in.Key) == "runs/2024/03/09/"+runID.String()+".json" &&
			aws.ToString(in.ContentType) == "application/json"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	archiver := NewSummaryArchiver(s, "runs", zaptest.NewLogger(t))
	location, err := archiver.Archive(ctx, summary)
	require.NoError(t, err)

	assert.Equal(t, "s3://sales/runs/2024/03/09/"+runID.String()+".json", location)
	assert.Contains(t, string(uploaded), `"status": "SUCCESS"`)
	assert.Contains(t, string(uploaded), runID.String())
}

func TestSummaryArchiver_UploadError(t *testing.T) {
	ctx := context.Background()
	s, api := newMockStorage(t)
	api.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("bucket quota exceeded")).Once()

	_, err := NewSummaryArchiver(s, "runs", nil).Archive(ctx, &importapp.RunSummary{
		Status:    bulk.RunStatusFailed,
		StartedAt: time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket quota exceeded")
}
