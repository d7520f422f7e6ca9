package sheetsclient

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
	"github.com/jakechorley/issuer-allocation/pkg/issuertable"
)

// ListIssuers reads an issuer table from a spreadsheet range. The first row
// must hold the headers named by cols; parsing rules match file input.
func (c *Client) ListIssuers(ctx context.Context, spreadsheetID, sheetRange string, cols issuertable.Columns) ([]model.IssuerRecord, error) {
	values, err := c.GetValues(ctx, spreadsheetID, sheetRange)
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	records, err := issuertable.ParseRows(stringCells(values), cols)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuers: %w", err)
	}

	c.logger.Debug("Read issuers from sheet",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("range", sheetRange),
		zap.Int("rows", len(values)-1),
		zap.Int("issuers", len(records)))

	return records, nil
}

// stringCells converts Sheets API cells (strings, numbers, bools) to text
func stringCells(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case nil:
			case float64:
				// Plain decimal so large numeric ids keep every digit
				cells[j] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows
}
