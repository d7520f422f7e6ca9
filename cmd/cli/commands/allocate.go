package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/internal/config"
	"github.com/jakechorley/issuer-allocation/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate issuers across the team and report the balance",
		Long: `Read the issuer table, assign every issuer to a team member and export the result.

US issuers are dealt round-robin to whoever has the fewest US issuers so far.
Tier 1, Tier 2, Tier 3 and unclassified issuers then each go to the member with
the lowest running point total.

Input comes from --input (.xlsx or .csv) or, when omitted, the issuerSheetID
range in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			sheet, _ := cmd.Flags().GetString("sheet")
			membersFlag, _ := cmd.Flags().GetString("members")
			output, _ := cmd.Flags().GetString("out")
			publish, _ := cmd.Flags().GetBool("publish")

			opts := services.AllocateIssuersOptions{
				InputPath:  input,
				Sheet:      sheet,
				Members:    config.ParseMembers(membersFlag),
				OutputPath: output,
				Publish:    publish,
			}

			app.Logger.Debug("allocate command",
				zap.String("input", input),
				zap.Strings("members", opts.Members),
				zap.Bool("publish", publish))

			var source services.IssuerSheetSource
			if publish && app.Cfg.AllocationSheetID == "" {
				return services.ErrNoPublishTarget
			}

			var publisher services.AllocationPublisher
			if input == "" || publish {
				client, err := app.SheetsClient()
				if err != nil {
					return err
				}
				source = client
				publisher = client
			}

			result, err := services.AllocateIssuers(app.Ctx, source, publisher, app.Cfg, app.Logger, opts)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}

			RenderAllocationResult(app.out(), result)
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Issuer table file (.xlsx or .csv)")
	cmd.Flags().String("sheet", "", "Workbook tab to read (defaults to inputSheet from config, then the first tab)")
	cmd.Flags().StringP("members", "m", "", `Comma-separated team members, e.g. "Alice,Bob" (overrides config)`)
	cmd.Flags().StringP("out", "o", "", `Output file (.csv or .xlsx); "-" to skip (defaults to outputPath from config)`)
	cmd.Flags().Bool("publish", false, "Also publish the allocation to a new tab of allocationSheetID")

	return cmd
}
