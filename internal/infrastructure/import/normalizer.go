package sheetimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Unknown is the sentinel substituted for missing attribute fields
const Unknown = "unknown"

// FieldType represents the target type of a field
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeUpper     FieldType = "upper"
	TypeInt       FieldType = "int"
	TypeMoney     FieldType = "money"
	TypeRate      FieldType = "rate"
	TypeDate      FieldType = "date"
	TypeBool      FieldType = "bool"
	TypeAttribute FieldType = "attribute"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"1/2/06",
	"02-Jan-2006",
}

// FieldSpec describes how to normalize one column
type FieldSpec struct {
	Column     string
	Type       FieldType
	Required   bool
	Default    string
	HasDefault bool
}

// FieldSpecBuilder helps build field specs fluently
type FieldSpecBuilder struct {
	spec FieldSpec
}

// Field creates a new field spec builder
func Field(column string) *FieldSpecBuilder {
	return &FieldSpecBuilder{spec: FieldSpec{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldSpecBuilder) Required() *FieldSpecBuilder {
	b.spec.Required = true
	return b
}

// String sets the field type to trimmed string
func (b *FieldSpecBuilder) String() *FieldSpecBuilder {
	b.spec.Type = TypeString
	return b
}

// Upper sets the field type to trimmed upper-case string
func (b *FieldSpecBuilder) Upper() *FieldSpecBuilder {
	b.spec.Type = TypeUpper
	return b
}

// Int sets the field type to integer
func (b *FieldSpecBuilder) Int() *FieldSpecBuilder {
	b.spec.Type = TypeInt
	return b
}

// Money sets the field type to fixed-point currency
func (b *FieldSpecBuilder) Money() *FieldSpecBuilder {
	b.spec.Type = TypeMoney
	return b
}

// Rate sets the field type to a decimal fraction
func (b *FieldSpecBuilder) Rate() *FieldSpecBuilder {
	b.spec.Type = TypeRate
	return b
}

// Date sets the field type to date
func (b *FieldSpecBuilder) Date() *FieldSpecBuilder {
	b.spec.Type = TypeDate
	return b
}

// Bool sets the field type to boolean
func (b *FieldSpecBuilder) Bool() *FieldSpecBuilder {
	b.spec.Type = TypeBool
	return b
}

// Attribute sets the field type to an optional attribute that falls back
// to the Unknown sentinel
func (b *FieldSpecBuilder) Attribute() *FieldSpecBuilder {
	b.spec.Type = TypeAttribute
	b.spec.Default = Unknown
	b.spec.HasDefault = true
	return b
}

// Default sets the documented default used when the value is absent
func (b *FieldSpecBuilder) Default(v string) *FieldSpecBuilder {
	b.spec.Default = v
	b.spec.HasDefault = true
	return b
}

// Build returns the built field spec
func (b *FieldSpecBuilder) Build() FieldSpec {
	return b.spec
}

// Value is a normalized cell. Present is false when the cell was blank and
// no default applied; Defaulted is true when the default was substituted.
type Value struct {
	Type      FieldType
	Present   bool
	Defaulted bool
	Text      string
	Int       int
	Decimal   decimal.Decimal
	Time      time.Time
	Bool      bool
}

// Note is an anomaly found while normalizing a cell
type Note = RowError

// Normalize coerces a raw cell into a typed value. A blank or unparseable
// cell yields the default with a note; the attribute sentinel is not noted. The only
// error is a NormalizationError for a required field that is blank or
// unparseable and has no default.
func Normalize(sheet string, row int, raw string, spec FieldSpec) (Value, *Note, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultValue(sheet, row, spec, "value is missing")
	}

	v, err := parse(raw, spec.Type)
	if err == nil {
		return v, nil, nil
	}

	note := NewRowErrorWithValue(sheet, row, spec.Column, ErrCodeSheetInvalidType,
		fmt.Sprintf("expected %s: %v", spec.Type, err), raw)
	dv, _, derr := defaultValue(sheet, row, spec, fmt.Sprintf("value %q is not a valid %s", raw, spec.Type))
	if derr != nil {
		return Value{}, &note, derr
	}
	return dv, &note, nil
}

func defaultValue(sheet string, row int, spec FieldSpec, reason string) (Value, *Note, error) {
	if !spec.HasDefault {
		if spec.Required {
			return Value{}, nil, &bulk.NormalizationError{Sheet: sheet, Row: row, Column: spec.Column, Reason: reason}
		}
		return Value{Type: spec.Type}, nil, nil
	}
	v, err := parse(spec.Default, spec.Type)
	if err != nil {
		return Value{}, nil, fmt.Errorf("invalid default %q for column %s: %w", spec.Default, spec.Column, err)
	}
	v.Defaulted = true
	// the unknown sentinel is how a missing attribute is stored, not a repair
	if spec.Type == TypeAttribute {
		return v, nil, nil
	}
	note := NewRowErrorWithValue(sheet, row, spec.Column, ErrCodeSheetDefaulted,
		fmt.Sprintf("%s, default %q applied", reason, spec.Default), "")
	return v, &note, nil
}

func parse(raw string, t FieldType) (Value, error) {
	v := Value{Type: t, Present: true}
	switch t {
	case TypeString, TypeAttribute:
		v.Text = strings.Join(strings.Fields(raw), " ")
	case TypeUpper:
		v.Text = strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	case TypeInt:
		n, err := parseInt(raw)
		if err != nil {
			return Value{}, err
		}
		v.Int = n
	case TypeMoney:
		m, err := valueobject.ParseMoney(raw)
		if err != nil {
			return Value{}, err
		}
		v.Decimal = m.Amount()
	case TypeRate:
		r, err := valueobject.ParseRate(raw)
		if err != nil {
			return Value{}, err
		}
		v.Decimal = r
	case TypeDate:
		tm, err := parseDate(raw)
		if err != nil {
			return Value{}, err
		}
		v.Time = tm
	case TypeBool:
		b, err := parseBool(raw)
		if err != nil {
			return Value{}, err
		}
		v.Bool = b
	default:
		return Value{}, fmt.Errorf("unsupported field type %s", t)
	}
	return v, nil
}

func parseInt(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(d.IntPart()), nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// RowNormalizer normalizes the cells of one row and collects notes and the
// first NormalizationError
type RowNormalizer struct {
	row   *Row
	notes []Note
	err   error
}

// NewRowNormalizer creates a normalizer for a row
func NewRowNormalizer(row *Row) *RowNormalizer {
	return &RowNormalizer{row: row}
}

// Value normalizes one column of the row
func (n *RowNormalizer) Value(spec FieldSpec) Value {
	v, note, err := Normalize(n.row.Sheet, n.row.LineNumber, n.row.Get(spec.Column), spec)
	if note != nil {
		n.notes = append(n.notes, *note)
	}
	if err != nil && n.err == nil {
		n.err = err
	}
	return v
}

// String returns a normalized string column
func (n *RowNormalizer) String(spec FieldSpec) string {
	return n.Value(spec).Text
}

// Int returns an integer column and whether it was present
func (n *RowNormalizer) Int(spec FieldSpec) (int, bool) {
	v := n.Value(spec)
	return v.Int, v.Present
}

// OptionalInt returns a pointer to an integer column, nil when blank
func (n *RowNormalizer) OptionalInt(spec FieldSpec) *int {
	v := n.Value(spec)
	if !v.Present {
		return nil
	}
	i := v.Int
	return &i
}

// Decimal returns a money or rate column and whether it was present
func (n *RowNormalizer) Decimal(spec FieldSpec) (decimal.Decimal, bool) {
	v := n.Value(spec)
	return v.Decimal, v.Present && !v.Defaulted
}

// NullDecimal returns a money column that stays NULL when blank
func (n *RowNormalizer) NullDecimal(spec FieldSpec) decimal.NullDecimal {
	v := n.Value(spec)
	if !v.Present || v.Defaulted {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: v.Decimal, Valid: true}
}

// Date returns a date column and whether it was present
func (n *RowNormalizer) Date(spec FieldSpec) (time.Time, bool) {
	v := n.Value(spec)
	return v.Time, v.Present
}

// OptionalDate returns a pointer to a date column, nil when blank
func (n *RowNormalizer) OptionalDate(spec FieldSpec) *time.Time {
	v := n.Value(spec)
	if !v.Present {
		return nil
	}
	t := v.Time
	return &t
}

// Bool returns a boolean column
func (n *RowNormalizer) Bool(spec FieldSpec) bool {
	return n.Value(spec).Bool
}

// Note records an anomaly found by the caller on this row
func (n *RowNormalizer) Note(column, code, message, value string) {
	n.notes = append(n.notes, NewRowErrorWithValue(n.row.Sheet, n.row.LineNumber, column, code, message, value))
}

// Notes returns the anomalies found so far
func (n *RowNormalizer) Notes() []Note {
	return n.notes
}

// Err returns the first NormalizationError, if any
func (n *RowNormalizer) Err() error {
	return n.err
}

// Row returns the underlying row
func (n *RowNormalizer) Row() *Row {
	return n.row
}
