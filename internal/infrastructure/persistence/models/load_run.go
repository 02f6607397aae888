package models

import (
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/shopspring/decimal"
)

// LoadRunModel is the persistence model for the LoadRun audit record
type LoadRunModel struct {
	BaseModel
	Source        string            `gorm:"type:varchar(1024);not null"`
	ConflictMode  bulk.ConflictMode `gorm:"type:varchar(20);not null;default:'update'"`
	DryRun        bool              `gorm:"not null;default:false"`
	Status        bulk.RunStatus    `gorm:"type:varchar(30);not null;index"`
	Counts        string            `gorm:"type:jsonb;default:'{}'"`
	InvoiceTotal  decimal.Decimal   `gorm:"type:numeric(19,4);not null;default:0"`
	ErrorCount    int               `gorm:"not null;default:0"`
	ErrorDetails  string            `gorm:"type:jsonb;default:'[]'"`
	FailureReason string            `gorm:"type:text"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (LoadRunModel) TableName() string {
	return "load_runs"
}

// ToDomain converts the persistence model to a domain LoadRun
func (m *LoadRunModel) ToDomain() *bulk.LoadRun {
	run := &bulk.LoadRun{
		BaseEntity:    m.BaseModel.Entity(),
		Source:        m.Source,
		ConflictMode:  m.ConflictMode,
		DryRun:        m.DryRun,
		Status:        m.Status,
		InvoiceTotal:  m.InvoiceTotal,
		ErrorCount:    m.ErrorCount,
		FailureReason: m.FailureReason,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
	}
	_ = run.SetCountsFromJSON(m.Counts)
	_ = run.SetErrorDetailsFromJSON(m.ErrorDetails)
	return run
}

// FromDomain populates the persistence model from a domain LoadRun
func (m *LoadRunModel) FromDomain(r *bulk.LoadRun) error {
	m.SetEntity(r.BaseEntity)
	m.Source = r.Source
	m.ConflictMode = r.ConflictMode
	m.DryRun = r.DryRun
	m.Status = r.Status
	m.InvoiceTotal = r.InvoiceTotal
	m.ErrorCount = r.ErrorCount
	m.FailureReason = r.FailureReason
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt

	counts, err := r.CountsJSON()
	if err != nil {
		return err
	}
	m.Counts = counts
	details, err := r.ErrorDetailsJSON()
	if err != nil {
		return err
	}
	m.ErrorDetails = details
	return nil
}

// AllModels lists every model backed by a destination table, in dependency order
func AllModels() []any {
	return []any{
		&SalesTerritoryModel{},
		&ProductCategoryModel{},
		&ProductSubCategoryModel{},
		&ProductModel{},
		&SalespersonModel{},
		&CompanyModel{},
		&InvoiceModel{},
		&InvoiceLineItemModel{},
		&LoadRunModel{},
	}
}
