package importapp

import (
	"context"
	"fmt"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/trade"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
)

// invoiceEntry is an invoice with the source rows it was built from
type invoiceEntry struct {
	invoice  *trade.Invoice
	row      int
	lineRows map[*trade.InvoiceLineItem]int
}

func (t *Transformer) transactional(ctx context.Context) ([]EntityBatch, error) {
	entries, err := t.invoiceHeaders(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.invoiceLines(ctx, entries); err != nil {
		return nil, err
	}

	invoices := t.collect(bulk.PhaseTransactional, bulk.EntityInvoice, sheetimport.SheetSalesOrderHeader)
	lines := t.collect(bulk.PhaseTransactional, bulk.EntityInvoiceLineItem, sheetimport.SheetSalesOrderDetail)
	for _, e := range entries.ordered {
		t.finishInvoice(e, invoices, lines)
	}

	placeholders := t.resolver.Placeholders()
	spBatch := EntityBatch{Entity: bulk.EntitySalesperson, Placeholders: true, Records: make([]bulk.Record, 0, len(placeholders))}
	for _, sp := range placeholders {
		spBatch.Records = append(spBatch.Records, sp)
	}
	return []EntityBatch{spBatch, invoices.batch(), lines.batch()}, nil
}

type invoiceSet struct {
	ordered []*invoiceEntry
	byOrder map[int]*invoiceEntry
}

func (t *Transformer) invoiceHeaders(ctx context.Context) (*invoiceSet, error) {
	rows, err := t.readSheet(sheetimport.SheetSalesOrderHeader)
	if err != nil {
		return nil, err
	}
	f := headerFields
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*trade.Invoice, error) {
		id, _ := n.Int(f.ID)
		orderDate, _ := n.Date(f.OrderDate)
		customerID, _ := n.Int(f.CustomerID)
		if err := n.Err(); err != nil {
			return nil, err
		}
		inv, err := trade.NewInvoice(id, customerID, orderDate)
		if err != nil {
			return nil, err
		}
		inv.SalesOrderNumber = n.String(f.Number)
		inv.RevisionNumber, _ = n.Int(f.Revision)
		inv.DueDate = n.OptionalDate(f.DueDate)
		inv.ShipDate = n.OptionalDate(f.ShipDate)
		inv.Status, _ = n.Int(f.Status)
		inv.OnlineOrderFlag = n.Bool(f.Online)
		inv.PurchaseOrderNumber = n.String(f.PurchaseOrder)
		inv.AccountNumber = n.String(f.AccountNumber)
		inv.SalespersonID = n.OptionalInt(f.SalesPersonID)
		inv.TerritoryID = n.OptionalInt(f.TerritoryID)
		inv.SubTotal, inv.SubTotalStated = n.Decimal(f.SubTotal)
		inv.TaxAmt, _ = n.Decimal(f.TaxAmt)
		inv.Freight, _ = n.Decimal(f.Freight)
		inv.TotalDue, inv.TotalDueStated = n.Decimal(f.TotalDue)
		if inv.SalesOrderNumber == "" {
			inv.SalesOrderNumber = fmt.Sprintf("SO%d", id)
		}
		return inv, nil
	})
	if err != nil {
		return nil, err
	}

	set := &invoiceSet{byOrder: make(map[int]*invoiceEntry, len(results))}
	c := t.collect(bulk.PhaseTransactional, bulk.EntityInvoice, sheetimport.SheetSalesOrderHeader)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) || c.duplicate(res.row.LineNumber, res.value.NaturalKey()) {
			continue
		}
		e := &invoiceEntry{invoice: res.value, row: res.row.LineNumber, lineRows: make(map[*trade.InvoiceLineItem]int)}
		set.ordered = append(set.ordered, e)
		set.byOrder[res.value.SalesOrderID] = e
	}
	return set, nil
}

func (t *Transformer) invoiceLines(ctx context.Context, set *invoiceSet) error {
	rows, err := t.readSheet(sheetimport.SheetSalesOrderDetail)
	if err != nil {
		return err
	}
	f := detailFields
	results, err := normalizeRows(ctx, t.workers, rows, func(n *sheetimport.RowNormalizer) (*trade.InvoiceLineItem, error) {
		orderID, _ := n.Int(f.OrderID)
		detailID, _ := n.Int(f.DetailID)
		productID, _ := n.Int(f.ProductID)
		qty, _ := n.Int(f.Qty)
		price, _ := n.Decimal(f.UnitPrice)
		discount, _ := n.Decimal(f.Discount)
		if err := n.Err(); err != nil {
			return nil, err
		}
		line, err := trade.NewInvoiceLineItem(detailID, orderID, productID, qty, price, discount)
		if err != nil {
			return nil, err
		}
		if stated, ok := n.Decimal(f.LineTotal); ok {
			line.SetStatedLineTotal(stated)
		} else {
			n.Note(f.LineTotal.Column, sheetimport.ErrCodeSheetDerivedValue,
				"line total missing, derived from quantity, unit price and discount", line.LineTotal.StringFixed(4))
		}
		line.CarrierTrackingNumber = n.String(f.Tracking)
		line.SpecialOfferID = n.OptionalInt(f.SpecialOfferID)
		return line, nil
	})
	if err != nil {
		return err
	}

	c := t.collect(bulk.PhaseTransactional, bulk.EntityInvoiceLineItem, sheetimport.SheetSalesOrderDetail)
	for _, res := range results {
		if !c.begin(res.row, res.notes, res.err) {
			continue
		}
		line := res.value
		if c.duplicate(res.row.LineNumber, line.NaturalKey()) {
			continue
		}
		e, ok := set.byOrder[line.SalesOrderID]
		if !ok {
			c.fail(res.row.LineNumber, &bulk.UnresolvedReferenceError{
				Entity:      bulk.EntityInvoice,
				Key:         itoa(line.SalesOrderID),
				Referrer:    bulk.EntityInvoiceLineItem,
				ReferrerKey: line.NaturalKey(),
			})
			continue
		}
		if err := e.invoice.AddLine(line); err != nil {
			c.fail(res.row.LineNumber, err)
			continue
		}
		e.lineRows[line] = res.row.LineNumber
	}
	return nil
}

// finishInvoice resolves the references of an invoice aggregate, runs the
// financial checks and accepts or excludes the invoice with all its lines
func (t *Transformer) finishInvoice(e *invoiceEntry, invoices, lines *collector) {
	inv := e.invoice
	exclude := func(err error) {
		invoices.fail(e.row, err)
		t.report.Drop(bulk.PhaseTransactional, bulk.EntityInvoiceLineItem, len(inv.Lines), err)
	}

	if !inv.SubTotalStated || !inv.TotalDueStated {
		inv.DeriveMissingTotals()
		t.report.Notes([]sheetimport.Note{sheetimport.NewRowErrorWithValue(sheetimport.SheetSalesOrderHeader, e.row, "",
			sheetimport.ErrCodeSheetDerivedValue, "invoice totals missing, derived from line totals, tax and freight", inv.TotalDue.StringFixed(4))})
	}

	companyRef, err := t.resolver.ResolveFor(inv, bulk.EntityCompany, inv.CustomerKey())
	if err != nil {
		exclude(err)
		return
	}
	inv.CompanyRef = companyRef

	if key := inv.TerritoryKey(); key != "" {
		ref, err := t.resolver.ResolveFor(inv, bulk.EntitySalesTerritory, key)
		if err != nil {
			exclude(err)
			return
		}
		inv.TerritoryRef = &ref
	}

	var unresolved error
	resolved := 0
	for _, line := range inv.Lines {
		ref, err := t.resolver.ResolveFor(line, bulk.EntityProduct, line.ProductKey())
		if err != nil {
			lines.fail(e.lineRows[line], err)
			if unresolved == nil {
				unresolved = err
			}
			continue
		}
		line.ProductRef = ref
		resolved++
	}
	if unresolved != nil {
		err := fmt.Errorf("invoice %s excluded: %w", inv.NaturalKey(), unresolved)
		invoices.fail(e.row, err)
		t.report.Drop(bulk.PhaseTransactional, bulk.EntityInvoiceLineItem, resolved, err)
		return
	}

	result := t.financial.Validate(inv)
	if result.Err != nil {
		exclude(result.Err)
		return
	}

	// placeholders are only synthesized for invoices that will be loaded
	if !invoices.check(e.row, inv) {
		t.report.Drop(bulk.PhaseTransactional, bulk.EntityInvoiceLineItem, len(inv.Lines), nil)
		return
	}
	if key := inv.SalespersonKey(); key != "" {
		ref, err := t.resolver.ResolveFor(inv, bulk.EntitySalesperson, key)
		if err != nil {
			exclude(err)
			return
		}
		inv.SalespersonRef = &ref
	}

	invoices.accept(inv)
	for _, line := range inv.Lines {
		lines.add(e.lineRows[line], line)
	}
	t.report.Discrepancies(result.Discrepancies)
}
