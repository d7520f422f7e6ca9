package issuertable

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jakechorley/issuer-allocation/pkg/core/allocator"
	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

var (
	// ErrMissingColumn is returned when a required header is absent
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidPoints is returned when a point value is not a finite, non-negative number
	ErrInvalidPoints = errors.New("invalid point value")

	// ErrEmptyTable is returned when the input has no header row
	ErrEmptyTable = errors.New("table is empty")

	// ErrMissingMember is returned when an exported allocation row has no member
	ErrMissingMember = errors.New("row has no team member")
)

// Columns maps the table headers to issuer fields
type Columns struct {
	ID      string
	Name    string
	Points  string
	Country string
	Member  string
}

// DefaultColumns are the headers used by the issuer export spreadsheet
func DefaultColumns() Columns {
	return Columns{
		ID:      "DMX_ISSUER_ID",
		Name:    "DMX_ISSUER_NAME",
		Points:  "TOTAL",
		Country: "COUNTRY_DOMICILE",
		Member:  "Team_Member",
	}
}

func (c Columns) required() []string {
	return []string{c.ID, c.Name, c.Points, c.Country}
}

// ParseRows converts raw table data (header row first) into issuer records.
// Headers are matched after trimming whitespace; extra columns are ignored.
// Rows with a blank issuer id are treated as empty and skipped.
func ParseRows(raw [][]string, cols Columns) ([]model.IssuerRecord, error) {
	if len(raw) < 1 {
		return nil, ErrEmptyTable
	}

	// Build field index map from header row
	fieldIndexes := make(map[string]int)
	var missing []string
	for _, field := range cols.required() {
		index := headerIndex(raw[0], field)
		if index == -1 {
			missing = append(missing, field)
			continue
		}
		fieldIndexes[field] = index
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	getField := func(field string, row []string) string {
		return cell(row, fieldIndexes[field])
	}

	records := make([]model.IssuerRecord, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]
		rowNumber := i + 1

		id := getField(cols.ID, row)
		if id == "" {
			continue
		}

		points, err := parsePoints(getField(cols.Points, row))
		if err != nil {
			return nil, fmt.Errorf("row %d (issuer %s): %w", rowNumber, id, err)
		}

		records = append(records, model.IssuerRecord{
			ID:          id,
			Name:        getField(cols.Name, row),
			Points:      points,
			CountryCode: getField(cols.Country, row),
			Row:         rowNumber,
		})
	}

	return records, nil
}

// ParseAssignments reads an exported allocation table: the issuer columns
// plus the member column, which must be filled on every issuer row.
func ParseAssignments(raw [][]string, cols Columns) ([]model.Assignment, error) {
	records, err := ParseRows(raw, cols)
	if err != nil {
		return nil, err
	}

	memberIndex := headerIndex(raw[0], cols.Member)
	if memberIndex == -1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cols.Member)
	}

	assignments := make([]model.Assignment, 0, len(records))
	for _, record := range records {
		member := cell(raw[record.Row-1], memberIndex)
		if member == "" {
			return nil, fmt.Errorf("row %d (issuer %s): %w", record.Row, record.ID, ErrMissingMember)
		}
		assignments = append(assignments, model.Assignment{
			Issuer: record,
			Member: member,
			Tier:   allocator.Classify(record.CountryCode),
		})
	}

	return assignments, nil
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// thousandsGrouped matches values like "1,200" or "12,345.5"
var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

func parsePoints(value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: blank", ErrInvalidPoints)
	}
	number := value
	if strings.Contains(number, ",") {
		if !thousandsGrouped.MatchString(number) {
			return 0, fmt.Errorf("%w: %q has misplaced commas", ErrInvalidPoints, value)
		}
		number = strings.ReplaceAll(number, ",", "")
	}
	points, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPoints, value)
	}
	if math.IsNaN(points) || math.IsInf(points, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidPoints, value)
	}
	if points < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPoints, value)
	}
	return points, nil
}

// FormatPoints renders a point value without trailing zeros
func FormatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}

// AllocationRows builds the output table: the input columns plus the assigned member.
// Assignments are written in the order given.
func AllocationRows(assignments []model.Assignment, cols Columns) [][]string {
	rows := make([][]string, 0, len(assignments)+1)
	rows = append(rows, []string{cols.ID, cols.Name, cols.Points, cols.Country, cols.Member})
	for _, a := range assignments {
		rows = append(rows, []string{
			a.Issuer.ID,
			a.Issuer.Name,
			FormatPoints(a.Issuer.Points),
			a.Issuer.CountryCode,
			a.Member,
		})
	}
	return rows
}
