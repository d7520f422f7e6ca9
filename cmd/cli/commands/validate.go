package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/internal/config"
	"github.com/jakechorley/issuer-allocation/pkg/core/services"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <allocation_file>",
		Short: "Re-check the balance of an exported allocation file",
		Long: `Read a previously exported allocation (.csv or .xlsx with a member column)
and print each member's total against the team average.

Members come from --members, then teamMembers in config, then the file itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, _ := cmd.Flags().GetString("sheet")
			membersFlag, _ := cmd.Flags().GetString("members")

			app.Logger.Debug("validate command", zap.String("path", args[0]))

			summary, err := services.ValidateAllocationFile(app.Cfg, app.Logger, args[0], sheet, config.ParseMembers(membersFlag))
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			w := app.out()
			fmt.Fprintln(w)
			RenderSummary(w, summary)
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().String("sheet", "", "Workbook tab to read (defaults to the first tab)")
	cmd.Flags().StringP("members", "m", "", "Comma-separated team members (overrides config)")

	return cmd
}
