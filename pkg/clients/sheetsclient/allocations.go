package sheetsclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/pkg/core/allocator"
	"github.com/jakechorley/issuer-allocation/pkg/core/model"
	"github.com/jakechorley/issuer-allocation/pkg/issuertable"
)

// PublishedAllocation is everything written to an allocation tab
type PublishedAllocation struct {
	RunID       string
	GeneratedAt time.Time
	Assignments []model.Assignment
	Summary     *allocator.ValidationSummary
	Columns     issuertable.Columns
}

// PublishAllocation writes an allocation run to its own tab, titled
// "Allocation 2006-01-02 <run>". Re-publishing the same run overwrites the tab.
// Returns the tab title.
func (c *Client) PublishAllocation(ctx context.Context, spreadsheetID string, published *PublishedAllocation) (string, error) {
	tabTitle := allocationTabTitle(published.GeneratedAt, published.RunID)

	exists, err := c.SheetExists(ctx, spreadsheetID, tabTitle)
	if err != nil {
		return "", err
	}

	if exists {
		c.logger.Info("Allocation tab already exists, overwriting", zap.String("tab", tabTitle))
		if err := c.ClearValues(ctx, spreadsheetID, fmt.Sprintf("'%s'", tabTitle)); err != nil {
			return "", fmt.Errorf("failed to clear existing tab: %w", err)
		}
	} else {
		if _, err := c.CreateSheet(ctx, spreadsheetID, tabTitle); err != nil {
			return "", fmt.Errorf("failed to create tab: %w", err)
		}
	}

	rows := allocationSheetRows(published)
	if err := c.WriteValues(ctx, spreadsheetID, fmt.Sprintf("'%s'!A1", tabTitle), rows); err != nil {
		return "", fmt.Errorf("failed to write allocation to tab: %w", err)
	}

	return tabTitle, nil
}

// allocationTabTitle uses the first 8 characters of the run id to keep titles short
func allocationTabTitle(generatedAt time.Time, runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Allocation %s %s", generatedAt.Format("2006-01-02"), short)
}

// allocationSheetRows lays out the tab: the allocation table, one blank row,
// then the per-member summary
func allocationSheetRows(published *PublishedAllocation) [][]interface{} {
	table := issuertable.AllocationRows(published.Assignments, published.Columns)

	rows := make([][]interface{}, 0, len(table))
	for i, row := range table {
		sheetRow := make([]interface{}, len(row))
		for j, cell := range row {
			sheetRow[j] = cell
		}
		// Points stay numeric so the sheet can sum them
		if i > 0 {
			sheetRow[2] = published.Assignments[i-1].Issuer.Points
		}
		rows = append(rows, sheetRow)
	}

	if published.Summary == nil {
		return rows
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Average Points per Member", published.Summary.AveragePointsPerMember},
		[]interface{}{"Member", "Total", "Difference from Average", "Status"},
	)
	for _, m := range published.Summary.Members {
		rows = append(rows, []interface{}{m.Member, m.Total, m.DifferenceFromAverage, memberStatus(m)})
	}

	return rows
}

func memberStatus(m allocator.MemberSummary) string {
	switch {
	case m.AboveAverage:
		return "Above Average"
	case m.BelowAverage:
		return "Below Average"
	default:
		return "At Average"
	}
}
