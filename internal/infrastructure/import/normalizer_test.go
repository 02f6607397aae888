package sheetimport

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSpecBuilder(t *testing.T) {
	t.Run("required money", func(t *testing.T) {
		spec := Field("UnitPrice").Required().Money().Build()

		assert.Equal(t, "UnitPrice", spec.Column)
		assert.True(t, spec.Required)
		assert.Equal(t, TypeMoney, spec.Type)
		assert.False(t, spec.HasDefault)
	})

	t.Run("attribute defaults to unknown", func(t *testing.T) {
		spec := Field("Color").Attribute().Build()

		assert.Equal(t, TypeAttribute, spec.Type)
		assert.True(t, spec.HasDefault)
		assert.Equal(t, Unknown, spec.Default)
	})

	t.Run("explicit default", func(t *testing.T) {
		spec := Field("UnitPriceDiscount").Rate().Default("0").Build()

		assert.True(t, spec.HasDefault)
		assert.Equal(t, "0", spec.Default)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("int from float text", func(t *testing.T) {
		v, note, err := Normalize("Product", 2, "42.0", Field("ProductID").Required().Int().Build())

		require.NoError(t, err)
		assert.Nil(t, note)
		assert.True(t, v.Present)
		assert.Equal(t, 42, v.Int)
	})

	t.Run("money with currency symbol", func(t *testing.T) {
		v, _, err := Normalize("SalesOrderDetail", 3, " $1,234.50 ", Field("UnitPrice").Money().Build())

		require.NoError(t, err)
		assert.True(t, v.Decimal.Equal(decimal.RequireFromString("1234.5")))
	})

	t.Run("rate in percent", func(t *testing.T) {
		v, _, err := Normalize("SalesOrderDetail", 3, "10%", Field("UnitPriceDiscount").Rate().Build())

		require.NoError(t, err)
		assert.True(t, v.Decimal.Equal(decimal.RequireFromString("0.1")))
	})

	t.Run("upper collapses whitespace", func(t *testing.T) {
		v, _, err := Normalize("SalesTerritory", 2, "  us ", Field("CountryRegionCode").Upper().Build())

		require.NoError(t, err)
		assert.Equal(t, "US", v.Text)
	})

	t.Run("date layouts", func(t *testing.T) {
		want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		for _, raw := range []string{"2024-03-15", "3/15/2024", "2024/03/15", "15-Mar-2024"} {
			v, _, err := Normalize("SalesOrderHeader", 2, raw, Field("OrderDate").Date().Build())
			require.NoError(t, err, raw)
			assert.True(t, v.Time.Equal(want), raw)
		}
	})

	t.Run("date from excel serial", func(t *testing.T) {
		v, _, err := Normalize("SalesOrderHeader", 2, "45366", Field("OrderDate").Date().Build())

		require.NoError(t, err)
		assert.Equal(t, 2024, v.Time.Year())
		assert.Equal(t, time.March, v.Time.Month())
		assert.Equal(t, 15, v.Time.Day())
	})

	t.Run("bool", func(t *testing.T) {
		spec := Field("MakeFlag").Bool().Build()
		for raw, want := range map[string]bool{"1": true, "TRUE": true, "0": false, "no": false} {
			v, _, err := Normalize("Product", 2, raw, spec)
			require.NoError(t, err)
			assert.Equal(t, want, v.Bool, raw)
		}
	})

	t.Run("blank attribute becomes unknown", func(t *testing.T) {
		v, note, err := Normalize("Product", 2, "", Field("Color").Attribute().Build())

		require.NoError(t, err)
		assert.Nil(t, note)
		assert.True(t, v.Defaulted)
		assert.Equal(t, Unknown, v.Text)
	})

	t.Run("blank optional without default is absent", func(t *testing.T) {
		v, note, err := Normalize("SalesOrderHeader", 2, "", Field("ShipDate").Date().Build())

		require.NoError(t, err)
		assert.Nil(t, note)
		assert.False(t, v.Present)
	})

	t.Run("blank required without default fails", func(t *testing.T) {
		_, _, err := Normalize("Product", 7, "", Field("ProductID").Required().Int().Build())

		var nerr *bulk.NormalizationError
		require.True(t, errors.As(err, &nerr))
		assert.Equal(t, "Product", nerr.Sheet)
		assert.Equal(t, 7, nerr.Row)
		assert.Equal(t, "ProductID", nerr.Column)
	})

	t.Run("blank required with default uses default", func(t *testing.T) {
		v, note, err := Normalize("SalesOrderDetail", 2, "", Field("UnitPriceDiscount").Required().Rate().Default("0").Build())

		require.NoError(t, err)
		assert.True(t, v.Defaulted)
		assert.True(t, v.Decimal.IsZero())
		require.NotNil(t, note)
		assert.Equal(t, ErrCodeSheetDefaulted, note.Code)
		assert.Equal(t, "UnitPriceDiscount", note.Column)
		assert.Equal(t, 2, note.Row)
		assert.Contains(t, note.Message, `default "0" applied`)
	})

	t.Run("blank money defaults are noted", func(t *testing.T) {
		for _, column := range []string{"TaxAmt", "Freight"} {
			v, note, err := Normalize("SalesOrderHeader", 3, " ", Field(column).Money().Default("0").Build())

			require.NoError(t, err)
			assert.True(t, v.Decimal.IsZero())
			require.NotNil(t, note, column)
			assert.Equal(t, ErrCodeSheetDefaulted, note.Code)
		}
	})

	t.Run("blank attribute takes the sentinel without a note", func(t *testing.T) {
		v, note, err := Normalize("Product", 3, "", Field("Color").Attribute().Build())

		require.NoError(t, err)
		assert.Nil(t, note)
		assert.Equal(t, Unknown, v.Text)
	})

	t.Run("unparseable optional yields note and default", func(t *testing.T) {
		v, note, err := Normalize("Product", 4, "cheap", Field("ListPrice").Money().Default("0").Build())

		require.NoError(t, err)
		require.NotNil(t, note)
		assert.Equal(t, ErrCodeSheetInvalidType, note.Code)
		assert.Equal(t, "cheap", note.Value)
		assert.True(t, v.Defaulted)
	})

	t.Run("unparseable required yields note and error", func(t *testing.T) {
		_, note, err := Normalize("SalesOrderDetail", 4, "abc", Field("OrderQty").Required().Int().Build())

		require.Error(t, err)
		require.NotNil(t, note)
		assert.Equal(t, "OrderQty", note.Column)
	})

	t.Run("non-integer rejected for int", func(t *testing.T) {
		_, note, err := Normalize("SalesOrderDetail", 4, "2.5", Field("OrderQty").Int().Build())

		require.NoError(t, err)
		require.NotNil(t, note)
	})
}

func TestRowNormalizer(t *testing.T) {
	row := &Row{
		Sheet:      SheetProduct,
		LineNumber: 5,
		Data: map[string]string{
			"productid":            "710",
			"name":                 "Mountain Bike Socks, L",
			"color":                "",
			"listprice":            "n/a",
			"productsubcategoryid": "",
		},
	}

	n := NewRowNormalizer(row)
	id, ok := n.Int(Field("ProductID").Required().Int().Build())
	assert.True(t, ok)
	assert.Equal(t, 710, id)
	assert.Equal(t, "Mountain Bike Socks, L", n.String(Field("Name").Required().Build()))
	assert.Equal(t, Unknown, n.String(Field("Color").Attribute().Build()))
	assert.False(t, n.NullDecimal(Field("ListPrice").Money().Build()).Valid)
	assert.Nil(t, n.OptionalInt(Field("ProductSubcategoryID").Int().Build()))
	require.NoError(t, n.Err())
	require.Len(t, n.Notes(), 1)
	assert.Equal(t, "ListPrice", n.Notes()[0].Column)

	n.Int(Field("ProductModelID").Required().Int().Build())
	assert.Error(t, n.Err())
}
