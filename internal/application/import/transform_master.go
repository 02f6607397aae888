package importapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/catalog"
	"github.com/erp/salesetl/internal/domain/partner"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"go.uber.org/zap"
)

func (t *Transformer) master(ctx context.Context) ([]EntityBatch, error) {
	products, err := t.products(ctx)
	if err != nil {
		return nil, err
	}
	companies, err := t.companies(ctx)
	if err != nil {
		return nil, err
	}
	salespersons, err := t.salespersons(ctx)
	if err != nil {
		return nil, err
	}
	return []EntityBatch{products, companies, salespersons}, nil
}

func (t *Transformer) products(ctx context.Context) (EntityBatch, error) {
	rows, err := t.readSheet(sheetimport.SheetProduct)
	if err != nil {
		return EntityBatch{}, err
	}
	f := productFields
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*catalog.Product, error) {
		id, _ := n.Int(f.ID)
		name := n.String(f.Name)
		if err := n.Err(); err != nil {
			return nil, err
		}
		p, err := catalog.NewProduct(id, name)
		if err != nil {
			return nil, err
		}
		p.ProductNumber = n.String(f.Number)
		p.Color = n.String(f.Color)
		p.Size = n.String(f.Size)
		p.ProductLine = n.String(f.ProductLine)
		p.Class = n.String(f.Class)
		p.Style = n.String(f.Style)
		p.StandardCost = n.NullDecimal(f.StandardCost)
		p.ListPrice = n.NullDecimal(f.ListPrice)
		p.MakeFlag = n.Bool(f.MakeFlag)
		p.FinishedGoodsFlag = n.Bool(f.FinishedGoodsFlag)
		if sub := n.OptionalInt(f.SubcategoryID); sub != nil {
			p.SetSubcategory(*sub)
		}
		p.ProductModelID = n.OptionalInt(f.ModelID)
		return p, nil
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseMaster, bulk.EntityProduct, sheetimport.SheetProduct)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) {
			continue
		}
		p := res.value
		if c.duplicate(res.row.LineNumber, p.NaturalKey()) {
			continue
		}
		if key := p.SubcategoryKey(); key != "" {
			ref, err := t.resolver.ResolveFor(p, bulk.EntityProductSubCategory, key)
			if err != nil {
				c.fail(res.row.LineNumber, err)
				continue
			}
			p.ResolveSubcategory(ref)
		}
		c.add(res.row.LineNumber, p)
	}
	return c.batch(), nil
}

// customerRow is one normalized row of the Customers sheet
type customerRow struct {
	CustomerID    int
	PersonID      *int
	StoreID       *int
	TerritoryID   *int
	AccountNumber string
}

// customerDetail is the name and address of a person or store
type customerDetail struct {
	ID          int
	Name        string
	Address     valueobject.Address
	AddressType string
	Row         int
}

// preferredAddressTypes rank the address rows of one business entity
var preferredAddressTypes = map[string]bool{
	"home":        true,
	"main office": true,
	"primary":     true,
}

func mergeDetail(details map[int]*customerDetail, id int, d *customerDetail) {
	existing, ok := details[id]
	if !ok {
		details[id] = d
		return
	}
	if preferredAddressTypes[strings.ToLower(d.AddressType)] && !preferredAddressTypes[strings.ToLower(existing.AddressType)] {
		details[id] = d.fillBlanks(existing)
		return
	}
	details[id] = existing.fillBlanks(d)
}

// fillBlanks returns a copy of d whose empty name and address fields are
// taken from other
func (d *customerDetail) fillBlanks(other *customerDetail) *customerDetail {
	out := *d
	out.Address = d.Address.Merge(other.Address)
	if out.Name == "" {
		out.Name = other.Name
	}
	return &out
}

func readAddress(n *sheetimport.RowNormalizer) (valueobject.Address, string) {
	f := addressFields
	addr := valueobject.StandardizeAddress(valueobject.AddressInput{
		Line1:         n.String(f.Line1),
		Line2:         n.String(f.Line2),
		City:          n.String(f.City),
		StateProvince: n.String(f.State),
		PostalCode:    n.String(f.Postal),
		Country:       n.String(f.Country),
	})
	return addr, n.String(f.Type)
}

// customerDetails reads a detail sheet keyed by BusinessEntityID. Broken
// detail rows are noted; the customer they belong to is flagged for review.
func (t *Transformer) customerDetails(
	ctx context.Context,
	sheet string,
	name func(n *sheetimport.RowNormalizer) string,
	idSpec sheetimport.FieldSpec,
) (map[int]*customerDetail, error) {
	rows, err := t.readSheet(sheet)
	if err != nil {
		return nil, err
	}
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*customerDetail, error) {
		id, _ := n.Int(idSpec)
		d := &customerDetail{ID: id, Name: name(n), Row: n.Row().LineNumber}
		d.Address, d.AddressType = readAddress(n)
		if err := n.Err(); err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, &bulk.NormalizationError{Sheet: sheet, Row: d.Row, Column: idSpec.Column, Reason: "must be positive"}
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	details := make(map[int]*customerDetail, len(results))
	for _, res := range results {
		t.report.Notes(res.notes)
		if res.err != nil {
			t.report.Notes([]sheetimport.Note{rowErrorFor(sheet, res.row.LineNumber, res.err)})
			continue
		}
		mergeDetail(details, res.value.ID, res.value)
	}
	return details, nil
}

func (t *Transformer) companies(ctx context.Context) (EntityBatch, error) {
	individuals, err := t.customerDetails(ctx, sheetimport.SheetIndividualCustomers, func(n *sheetimport.RowNormalizer) string {
		f := individualFields
		return joinName(n.String(f.FirstName), n.String(f.MiddleName), n.String(f.LastName))
	}, individualFields.ID)
	if err != nil {
		return EntityBatch{}, err
	}
	stores, err := t.customerDetails(ctx, sheetimport.SheetStoreCustomers, func(n *sheetimport.RowNormalizer) string {
		return n.String(storeFields.Name)
	}, storeFields.ID)
	if err != nil {
		return EntityBatch{}, err
	}

	rows, err := t.readSheet(sheetimport.SheetCustomers)
	if err != nil {
		return EntityBatch{}, err
	}
	f := customerFields
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (customerRow, error) {
		id, _ := n.Int(f.ID)
		return customerRow{
			CustomerID:    id,
			PersonID:      n.OptionalInt(f.PersonID),
			StoreID:       n.OptionalInt(f.StoreID),
			TerritoryID:   n.OptionalInt(f.TerritoryID),
			AccountNumber: n.String(f.AccountNumber),
		}, nil
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseMaster, bulk.EntityCompany, sheetimport.SheetCustomers)
	variants := make([]partner.CompanyVariant, 0, len(results))
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) {
			continue
		}
		line := res.row.LineNumber
		if res.value.CustomerID <= 0 {
			c.fail(line, &bulk.NormalizationError{Sheet: c.sheet, Row: line, Column: f.ID.Column, Reason: "must be positive"})
			continue
		}
		if c.duplicate(line, itoa(res.value.CustomerID)) {
			continue
		}
		v, err := buildVariant(res.value, individuals, stores, line)
		if err != nil {
			c.fail(line, err)
			continue
		}
		variants = append(variants, v)
	}

	consolidated := partner.Consolidate(variants)
	for alias, target := range consolidated.Aliases {
		t.resolver.Alias(bulk.EntityCompany, itoa(alias), itoa(target))
	}
	if consolidated.Merges > 0 {
		t.report.Skip(bulk.EntityCompany, consolidated.Merges, nil)
		t.logger.Info("customer variants consolidated",
			zap.Int("variants", len(variants)),
			zap.Int("companies", len(consolidated.Companies)),
			zap.Int("merged", consolidated.Merges))
	}

	for _, company := range consolidated.Companies {
		line := c.seen[company.NaturalKey()]
		if key := company.TerritoryKey(); key != "" {
			ref, err := t.resolver.ResolveFor(company, bulk.EntitySalesTerritory, key)
			if err != nil {
				c.fail(line, err)
				continue
			}
			company.ResolveTerritory(ref)
		}
		if company.NeedsReview {
			reasons := company.Address.ReviewReasons()
			if len(reasons) == 0 {
				reasons = []string{"customer detail missing"}
			}
			t.report.Notes([]sheetimport.Note{sheetimport.NewRowErrorWithValue(c.sheet, line, "", sheetimport.ErrCodeSheetNeedsReview,
				fmt.Sprintf("company %s needs review: %s", company.NaturalKey(), strings.Join(reasons, ", ")), company.DisplayName)})
		}
		c.add(line, company)
	}
	return c.batch(), nil
}

// buildVariant joins a Customers row to its person or store detail. The
// person detail wins when both exist; the store detail only fills its blanks.
func buildVariant(row customerRow, individuals, stores map[int]*customerDetail, line int) (partner.CompanyVariant, error) {
	v := partner.CompanyVariant{
		CustomerID:    row.CustomerID,
		AccountNumber: row.AccountNumber,
		TerritoryID:   row.TerritoryID,
		SourceSheet:   sheetimport.SheetCustomers,
		SourceRow:     line,
	}

	var detail *customerDetail
	switch {
	case row.PersonID != nil:
		v.Origin = partner.CompanyTypeIndividual
		detail = individuals[*row.PersonID]
		if row.StoreID == nil {
			break
		}
		if store := stores[*row.StoreID]; store != nil {
			if detail == nil {
				v.Origin = partner.CompanyTypeStore
				detail = store
			} else {
				detail = detail.fillBlanks(store)
			}
		}
	case row.StoreID != nil:
		v.Origin = partner.CompanyTypeStore
		detail = stores[*row.StoreID]
	default:
		return v, &bulk.NormalizationError{
			Sheet:  sheetimport.SheetCustomers,
			Row:    line,
			Column: customerFields.PersonID.Column,
			Reason: "customer has neither PersonID nor StoreID",
		}
	}

	if detail == nil {
		v.NeedsReview = true
	} else {
		v.DisplayName = detail.Name
		v.Address = detail.Address
	}
	if v.DisplayName == "" {
		v.DisplayName = fmt.Sprintf("Customer %d", row.CustomerID)
		v.NeedsReview = true
	}
	return v, nil
}

func (t *Transformer) salespersons(ctx context.Context) (EntityBatch, error) {
	rows, err := t.readSheet(sheetimport.SheetSalesPerson)
	if err != nil {
		return EntityBatch{}, err
	}
	f := salespersonFields
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*partner.Salesperson, error) {
		id, _ := n.Int(f.ID)
		name := n.String(f.Name)
		if name == "" {
			name = joinName(n.String(f.FirstName), n.String(f.LastName))
		}
		if err := n.Err(); err != nil {
			return nil, err
		}
		return partner.NewSalesperson(id, name)
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseMaster, bulk.EntitySalesperson, sheetimport.SheetSalesPerson)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) || c.duplicate(res.row.LineNumber, res.value.NaturalKey()) {
			continue
		}
		c.add(res.row.LineNumber, res.value)
	}
	return c.batch(), nil
}
