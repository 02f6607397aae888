package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add load run index", "add_load_run_index"},
		{"Add-Invoice-Status", "add_invoice_status"},
		{"ADD_SALES_TABLES", "add_sales_tables"},
		{"add__sales__tables", "add_sales_tables"},
		{"Add Columns 123", "add_columns_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"müller import", "m_ller_import"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add invoice status index", "Index invoices by status")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))
	assert.Equal(t,
		strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
		strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add invoice status index")
	assert.Contains(t, string(up), "Index invoices by status")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	listed, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{mf.Version + "_add_invoice_status_index"}, listed)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "sql")

	_, err := CreateMigration(nested, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000003_add_products.up.sql":   {Data: []byte("--")},
		"000003_add_products.down.sql": {Data: []byte("--")},
		"000001_init_schema.up.sql":    {Data: []byte("--")},
		"000001_init_schema.down.sql":  {Data: []byte("--")},
		"README.md":                    {Data: []byte("docs")},
		"subdir.up.sql/nested.sql":     {Data: []byte("--")},
	}

	migrations, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000003_add_products"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := ListMigrations(Files())
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for _, name := range migrations {
		_, err := fsReadFile(name + ".down.sql")
		assert.NoError(t, err, "%s has no rollback", name)
	}

	schema, err := fsReadFile(migrations[0] + ".up.sql")
	require.NoError(t, err)
	for _, table := range []string{
		"sales_territories", "product_categories", "product_subcategories", "products",
		"salespersons", "companies", "invoices", "invoice_line_items",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func fsReadFile(name string) (string, error) {
	data, err := fs.ReadFile(Files(), name)
	return string(data), err
}
