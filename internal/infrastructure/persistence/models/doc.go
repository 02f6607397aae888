// Package models contains GORM-specific persistence models that map to the
// destination tables. Domain entities stay free of ORM tags; each model has
// FromDomain and ToDomain mappers used by the store and repositories.
//
// Structure:
// - base.go: BaseModel shared by every table
// - partner.go: sales territories, companies, salespersons
// - catalog.go: product categories, subcategories, products
// - trade.go: invoices and invoice line items
// - load_run.go: audit record of each pipeline run
package models
