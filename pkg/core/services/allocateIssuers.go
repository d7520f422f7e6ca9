package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/internal/config"
	"github.com/jakechorley/issuer-allocation/pkg/clients/sheetsclient"
	"github.com/jakechorley/issuer-allocation/pkg/core/allocator"
	"github.com/jakechorley/issuer-allocation/pkg/core/model"
	"github.com/jakechorley/issuer-allocation/pkg/issuertable"
)

var (
	// ErrNoInput is returned when neither an input file nor an issuer sheet is configured
	ErrNoInput = errors.New("no issuer input: pass --input or set issuerSheetID")

	// ErrNoPublishTarget is returned when publishing without an allocation sheet
	ErrNoPublishTarget = errors.New("publishing requires allocationSheetID in config")
)

// IssuerSheetSource reads issuer tables from Google Sheets
type IssuerSheetSource interface {
	ListIssuers(ctx context.Context, spreadsheetID, sheetRange string, cols issuertable.Columns) ([]model.IssuerRecord, error)
}

// AllocationPublisher writes an allocation run to a spreadsheet tab
type AllocationPublisher interface {
	PublishAllocation(ctx context.Context, spreadsheetID string, published *sheetsclient.PublishedAllocation) (string, error)
}

// AllocateIssuersOptions are the per-run inputs that override config
type AllocateIssuersOptions struct {
	// InputPath is a .xlsx or .csv file; empty means read from the configured issuer sheet
	InputPath string
	Sheet     string

	// Members overrides cfg.TeamMembers when non-empty
	Members []string

	// OutputPath overrides cfg.OutputPath; "-" skips the file export
	OutputPath string

	Publish bool
}

// AllocateIssuersResult is the outcome of a full allocation run
type AllocateIssuersResult struct {
	RunID   string
	Source  string
	Members []string

	// Assignments in input order, one per distinct issuer id
	Assignments []model.Assignment
	Duplicates  []allocator.DuplicateIssuer
	Summary     *allocator.ValidationSummary
	TierCounts  map[model.Tier]int

	// OutputPath is empty when the export was skipped
	OutputPath   string
	PublishedTab string
}

// AllocateIssuers loads the issuer table, allocates it across the team,
// validates the balance, exports the table and optionally publishes it.
// sheets and publisher may be nil when the run does not need them.
func AllocateIssuers(
	ctx context.Context,
	sheets IssuerSheetSource,
	publisher AllocationPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	opts AllocateIssuersOptions,
) (*AllocateIssuersResult, error) {
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	members := opts.Members
	if len(members) == 0 {
		members = cfg.TeamMembers
	}
	logger.Debug("Starting allocation", zap.Strings("members", members))

	// Fail on a bad member list before touching any input
	alloc, err := allocator.NewAllocator(members, allocator.DuplicatePolicy(cfg.DuplicatePolicy))
	if err != nil {
		return nil, err
	}

	// A run that cannot publish must not leave an export behind
	if opts.Publish {
		if cfg.AllocationSheetID == "" {
			return nil, ErrNoPublishTarget
		}
		if publisher == nil {
			return nil, fmt.Errorf("no sheets client available for publishing")
		}
	}

	cols := cfg.TableColumns()
	records, source, err := loadIssuers(ctx, sheets, cfg, cols, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded issuers", zap.String("source", source), zap.Int("count", len(records)))

	outcome, err := alloc.Allocate(records)
	if err != nil {
		return nil, fmt.Errorf("allocation failed: %w", err)
	}

	for _, dup := range outcome.Duplicates {
		logger.Warn("Duplicate issuer id skipped",
			zap.String("issuer_id", dup.Issuer.ID),
			zap.Int("row", dup.Issuer.Row),
			zap.Int("first_row", dup.FirstRow))
	}

	tierCounts := make(map[model.Tier]int)
	for _, a := range outcome.Assignments {
		tierCounts[a.Tier]++
	}
	for _, tier := range model.TierPriority {
		logger.Debug("Tier allocated", zap.String("tier", string(tier)), zap.Int("issuers", tierCounts[tier]))
	}

	summary, err := allocator.Validate(outcome.Assignments, members)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	for _, m := range summary.Members {
		logger.Debug("Member total",
			zap.String("member", m.Member),
			zap.Float64("total", m.Total),
			zap.Float64("difference", m.DifferenceFromAverage))
	}

	result := &AllocateIssuersResult{
		RunID:       runID,
		Source:      source,
		Members:     members,
		Assignments: outcome.InOrder(records),
		Duplicates:  outcome.Duplicates,
		Summary:     summary,
		TierCounts:  tierCounts,
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = cfg.OutputPath
	}
	if outputPath != "-" {
		if err := issuertable.ExportFile(outputPath, result.Assignments, cols); err != nil {
			return nil, fmt.Errorf("failed to export allocation: %w", err)
		}
		result.OutputPath = outputPath
		logger.Info("Exported allocation", zap.String("path", outputPath))
	}

	if opts.Publish {
		tab, err := publisher.PublishAllocation(ctx, cfg.AllocationSheetID, &sheetsclient.PublishedAllocation{
			RunID:       runID,
			GeneratedAt: time.Now(),
			Assignments: result.Assignments,
			Summary:     summary,
			Columns:     cols,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to publish allocation: %w", err)
		}
		result.PublishedTab = tab
		logger.Info("Published allocation", zap.String("spreadsheet_id", cfg.AllocationSheetID), zap.String("tab", tab))
	}

	return result, nil
}

// loadIssuers reads from the input file when given, otherwise from the configured sheet
func loadIssuers(
	ctx context.Context,
	sheets IssuerSheetSource,
	cfg *config.Config,
	cols issuertable.Columns,
	opts AllocateIssuersOptions,
) ([]model.IssuerRecord, string, error) {
	if opts.InputPath != "" {
		sheet := opts.Sheet
		if sheet == "" {
			sheet = cfg.InputSheet
		}
		records, err := issuertable.LoadFile(opts.InputPath, sheet, cols)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load issuers from %s: %w", opts.InputPath, err)
		}
		return records, opts.InputPath, nil
	}

	if cfg.IssuerSheetID == "" {
		return nil, "", ErrNoInput
	}
	if sheets == nil {
		return nil, "", fmt.Errorf("no sheets client available to read issuer sheet")
	}

	records, err := sheets.ListIssuers(ctx, cfg.IssuerSheetID, cfg.IssuerSheetRange, cols)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load issuers from sheet: %w", err)
	}
	return records, fmt.Sprintf("sheet %s (%s)", cfg.IssuerSheetID, cfg.IssuerSheetRange), nil
}

// ValidateAllocationFile re-checks the balance of a previously exported allocation.
// When members is empty the members found in the file are used, in order of first appearance.
func ValidateAllocationFile(cfg *config.Config, logger *zap.Logger, path, sheet string, members []string) (*allocator.ValidationSummary, error) {
	assignments, err := issuertable.LoadAssignmentsFile(path, sheet, cfg.TableColumns())
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation from %s: %w", path, err)
	}
	logger.Debug("Loaded allocation", zap.String("path", path), zap.Int("assignments", len(assignments)))

	if len(members) == 0 {
		members = cfg.TeamMembers
	}
	if len(members) == 0 {
		members = membersInOrder(assignments)
	}

	return allocator.Validate(assignments, members)
}

func membersInOrder(assignments []model.Assignment) []string {
	seen := make(map[string]bool)
	members := make([]string, 0)
	for _, a := range assignments {
		if !seen[a.Member] {
			seen[a.Member] = true
			members = append(members, a.Member)
		}
	}
	return members
}
