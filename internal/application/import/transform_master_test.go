package importapp

import (
	"testing"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/partner"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestBuildVariant(t *testing.T) {
	person := &customerDetail{
		ID:   1699,
		Name: "Jon Yang",
		Address: valueobject.StandardizeAddress(valueobject.AddressInput{
			Line1:   "3761 N. 14th St",
			Country: "United States",
		}),
	}
	store := &customerDetail{
		ID:   934,
		Name: "A Bike Store",
		Address: valueobject.StandardizeAddress(valueobject.AddressInput{
			Line1:         "2251 Elliot Avenue",
			City:          "Seattle",
			StateProvince: "Washington",
			PostalCode:    "98104",
			Country:       "United States",
		}),
	}
	individuals := map[int]*customerDetail{1699: person}
	stores := map[int]*customerDetail{934: store}

	t.Run("person detail filled from store detail", func(t *testing.T) {
		row := customerRow{CustomerID: 11000, PersonID: intPtr(1699), StoreID: intPtr(934)}

		v, err := buildVariant(row, individuals, stores, 2)
		require.NoError(t, err)

		assert.Equal(t, partner.CompanyTypeIndividual, v.Origin)
		assert.Equal(t, "Jon Yang", v.DisplayName)
		assert.Equal(t, "3761 N. 14th St", v.Address.Line1())
		assert.Equal(t, "Seattle", v.Address.City())
		assert.Equal(t, "98104", v.Address.PostalCode())
		assert.False(t, v.NeedsReview)
		// shared detail entries are left untouched
		assert.Empty(t, person.Address.City())
	})

	t.Run("store detail when the person is missing", func(t *testing.T) {
		row := customerRow{CustomerID: 11001, PersonID: intPtr(42), StoreID: intPtr(934)}

		v, err := buildVariant(row, individuals, stores, 3)
		require.NoError(t, err)

		assert.Equal(t, partner.CompanyTypeStore, v.Origin)
		assert.Equal(t, "A Bike Store", v.DisplayName)
	})

	t.Run("no detail needs review", func(t *testing.T) {
		row := customerRow{CustomerID: 11002, StoreID: intPtr(7)}

		v, err := buildVariant(row, individuals, stores, 4)
		require.NoError(t, err)

		assert.True(t, v.NeedsReview)
		assert.Equal(t, "Customer 11002", v.DisplayName)
	})

	t.Run("neither id", func(t *testing.T) {
		_, err := buildVariant(customerRow{CustomerID: 11003}, individuals, stores, 5)

		var nerr *bulk.NormalizationError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, 5, nerr.Row)
	})
}
