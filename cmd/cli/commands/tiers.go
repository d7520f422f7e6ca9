package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/issuer-allocation/pkg/core/allocator"
	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

// TiersCmd creates the tiers command
func TiersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers [country_code...]",
		Short: "Show the allocation tier of country codes (or list every tier)",
		Annotations: map[string]string{
			SkipConfigAnnotation: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := app.out()

			if len(args) == 0 {
				for _, tier := range model.TierPriority {
					codes := allocator.TierCountries(tier)
					if codes == nil {
						fmt.Fprintf(w, "%-13s any other code, including blank\n", tier)
						continue
					}
					fmt.Fprintf(w, "%-13s %s\n", tier, strings.Join(codes, " "))
				}
				return nil
			}

			for _, code := range args {
				fmt.Fprintf(w, "%-6s %s\n", strings.ToUpper(strings.TrimSpace(code)), allocator.Classify(code))
			}
			return nil
		},
	}
}
