package importapp

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/trade"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxTextErrors bounds the row errors printed by WriteText; JSON carries
// every kept error.
const maxTextErrors = 20

// RunSummary is the outcome of one pipeline run
type RunSummary struct {
	RunID           uuid.UUID                             `json:"run_id"`
	Source          string                                `json:"source"`
	Status          bulk.RunStatus                        `json:"status"`
	ConflictMode    bulk.ConflictMode                     `json:"conflict_mode"`
	DryRun          bool                                  `json:"dry_run"`
	Phases          []PhaseReport                         `json:"phases"`
	Entities        map[bulk.EntityType]bulk.EntityCounts `json:"entities"`
	Discrepancies   []trade.Discrepancy                   `json:"discrepancies"`
	Errors          []sheetimport.RowError                `json:"errors"`
	ErrorSummary    map[string]int                        `json:"error_summary"`
	TotalErrors     int                                   `json:"total_errors"`
	ErrorsTruncated bool                                  `json:"errors_truncated"`
	InvoiceTotal    decimal.Decimal                       `json:"invoice_total"`
	FailureReason   string                                `json:"failure_reason,omitempty"`
	ArchiveLocation string                                `json:"archive_location,omitempty"`
	StartedAt       time.Time                             `json:"started_at"`
	Duration        time.Duration                         `json:"duration_ns"`
}

func newRunSummary(run *bulk.LoadRun) *RunSummary {
	started := time.Now()
	if run.StartedAt != nil {
		started = *run.StartedAt
	}
	return &RunSummary{
		RunID:        run.ID,
		Source:       run.Source,
		Status:       run.Status,
		ConflictMode: run.ConflictMode,
		DryRun:       run.DryRun,
		Entities:     make(map[bulk.EntityType]bulk.EntityCounts),
		InvoiceTotal: decimal.Zero,
		StartedAt:    started,
	}
}

// failedSummary describes a run that could not be started
func failedSummary(source string, opts Options, err error) *RunSummary {
	s := &RunSummary{
		Source:        source,
		Status:        bulk.RunStatusFailed,
		ConflictMode:  opts.ConflictMode,
		DryRun:        opts.DryRun,
		Entities:      make(map[bulk.EntityType]bulk.EntityCounts),
		InvoiceTotal:  decimal.Zero,
		FailureReason: err.Error(),
		StartedAt:     time.Now(),
	}
	for _, e := range bulk.AllEntityTypes() {
		s.Entities[e] = bulk.EntityCounts{}
	}
	return s
}

// fill copies the final tallies of report into the summary
func (s *RunSummary) fill(report *Report) {
	s.Entities = report.Counts()
	s.Discrepancies = report.DiscrepancyList()
	errs := report.Errors()
	s.Errors = errs.Errors()
	s.ErrorSummary = errs.ErrorSummary()
	s.TotalErrors = errs.TotalCount()
	s.ErrorsTruncated = errs.IsTruncated()
}

func (s *RunSummary) errorDetails() []bulk.ErrorDetail {
	details := make([]bulk.ErrorDetail, 0, len(s.Errors))
	for _, e := range s.Errors {
		details = append(details, bulk.ErrorDetail{
			Sheet:   e.Sheet,
			Row:     e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
			Value:   e.Value,
		})
	}
	return details
}

// Warnings counts everything that makes a completed run
// SUCCESS_WITH_WARNINGS: row notes and failures, placeholders and
// discrepancies.
func (s *RunSummary) Warnings() int {
	n := s.TotalErrors + len(s.Discrepancies)
	for _, c := range s.Entities {
		n += c.Placeholders
	}
	return n
}

// ExitCode is the process exit code for the run
func (s *RunSummary) ExitCode() int {
	return s.Status.ExitCode()
}

// WriteJSON writes the summary as indented JSON
func (s *RunSummary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteText writes a human readable report
func (s *RunSummary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	mode := string(s.ConflictMode)
	if s.DryRun {
		mode += " (dry run)"
	}
	fmt.Fprintf(tw, "Run:\t%s\n", runLabel(s.RunID))
	fmt.Fprintf(tw, "Source:\t%s\n", s.Source)
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "Conflict mode:\t%s\n", mode)
	fmt.Fprintf(tw, "Duration:\t%s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "Invoice total:\t%s\n", s.InvoiceTotal.StringFixed(2))
	if s.FailureReason != "" {
		fmt.Fprintf(tw, "Failure:\t%s\n", s.FailureReason)
	}
	if s.ArchiveLocation != "" {
		fmt.Fprintf(tw, "Archived to:\t%s\n", s.ArchiveLocation)
	}

	if len(s.Phases) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PHASE\tSTATUS\tDURATION\tERROR")
		for _, p := range s.Phases {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Phase, p.Status, p.Duration.Round(time.Millisecond), p.Error)
		}
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ENTITY\tLOADED\tUPDATED\tSKIPPED\tPLACEHOLDERS\tDISCREPANCIES\tFAILED")
	for _, e := range bulk.AllEntityTypes() {
		c := s.Entities[e]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			e, c.Loaded, c.Updated, c.Skipped, c.Placeholders, c.Discrepancies, c.Failed)
	}

	if len(s.ErrorSummary) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CODE\tCOUNT")
		codes := make([]string, 0, len(s.ErrorSummary))
		for code := range s.ErrorSummary {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(tw, "%s\t%d\n", code, s.ErrorSummary[code])
		}
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(tw)
		shown := s.Errors
		if len(shown) > maxTextErrors {
			shown = shown[:maxTextErrors]
		}
		fmt.Fprintf(tw, "First %d of %d row errors:\n", len(shown), s.TotalErrors)
		for _, e := range shown {
			fmt.Fprintf(tw, "  %s\t%s\n", e.Code, e.Error())
		}
	}

	if len(s.Discrepancies) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ORDER\tLINE\tCHECK\tEXPECTED\tACTUAL\tDELTA")
		for _, d := range s.Discrepancies {
			line := "-"
			if d.SalesOrderDetailID != 0 {
				line = fmt.Sprint(d.SalesOrderDetailID)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.SalesOrderID, line, d.Check,
				d.Expected.StringFixed(4), d.Actual.StringFixed(4), d.Delta.StringFixed(4))
		}
	}

	return tw.Flush()
}

func runLabel(id uuid.UUID) string {
	if id == uuid.Nil {
		return "-"
	}
	return id.String()
}
