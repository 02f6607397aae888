package importapp

import (
	"context"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/catalog"
	"github.com/erp/salesetl/internal/domain/partner"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
)

func (t *Transformer) reference(ctx context.Context) ([]EntityBatch, error) {
	territories, err := t.territories(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := t.categories(ctx)
	if err != nil {
		return nil, err
	}
	subcategories, err := t.subcategories(ctx)
	if err != nil {
		return nil, err
	}
	return []EntityBatch{territories, categories, subcategories}, nil
}

func (t *Transformer) territories(ctx context.Context) (EntityBatch, error) {
	rows, err := t.readSheet(sheetimport.SheetSalesTerritory)
	if err != nil {
		return EntityBatch{}, err
	}
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*partner.SalesTerritory, error) {
		id, _ := n.Int(territoryFields.ID)
		name := n.String(territoryFields.Name)
		code := n.String(territoryFields.CountryRegionCode)
		group := n.String(territoryFields.Group)
		if err := n.Err(); err != nil {
			return nil, err
		}
		return partner.NewSalesTerritory(id, name, code, group)
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseReference, bulk.EntitySalesTerritory, sheetimport.SheetSalesTerritory)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) || c.duplicate(res.row.LineNumber, res.value.NaturalKey()) {
			continue
		}
		c.add(res.row.LineNumber, res.value)
	}
	return c.batch(), nil
}

func (t *Transformer) categories(ctx context.Context) (EntityBatch, error) {
	rows, err := t.readSheet(sheetimport.SheetProductCategory)
	if err != nil {
		return EntityBatch{}, err
	}
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*catalog.ProductCategory, error) {
		id, _ := n.Int(categoryFields.ID)
		name := n.String(categoryFields.Name)
		if err := n.Err(); err != nil {
			return nil, err
		}
		return catalog.NewProductCategory(id, name)
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseReference, bulk.EntityProductCategory, sheetimport.SheetProductCategory)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) || c.duplicate(res.row.LineNumber, res.value.NaturalKey()) {
			continue
		}
		c.add(res.row.LineNumber, res.value)
	}
	return c.batch(), nil
}

// subcategories must run after categories so their references resolve
// within the same phase
func (t *Transformer) subcategories(ctx context.Context) (EntityBatch, error) {
	rows, err := t.readSheet(sheetimport.SheetProductSubCategory)
	if err != nil {
		return EntityBatch{}, err
	}
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*catalog.ProductSubCategory, error) {
		id, _ := n.Int(subcategoryFields.ID)
		categoryID, _ := n.Int(subcategoryFields.CategoryID)
		name := n.String(subcategoryFields.Name)
		if err := n.Err(); err != nil {
			return nil, err
		}
		return catalog.NewProductSubCategory(id, categoryID, name)
	})
	if err != nil {
		return EntityBatch{}, err
	}

	c := t.collect(bulk.PhaseReference, bulk.EntityProductSubCategory, sheetimport.SheetProductSubCategory)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) {
			continue
		}
		sub := res.value
		if c.duplicate(res.row.LineNumber, sub.NaturalKey()) {
			continue
		}
		categoryRef, err := t.resolver.ResolveFor(sub, bulk.EntityProductCategory, sub.CategoryKey())
		if err != nil {
			c.fail(res.row.LineNumber, err)
			continue
		}
		sub.ResolveCategory(categoryRef)
		c.add(res.row.LineNumber, sub)
	}
	return c.batch(), nil
}
