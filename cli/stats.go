package cli

import (
	"encoding/json"

	"github.com/djandroidboy/cinder/utils/tableprinter"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show backend stats",
	Long:  "show the capability record the driver reports to the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := d.GetVolumeStats(cmd.Context(), refresh)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		return tableprinter.PrintKeyValues(cmd.OutOrStdout(), stats)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("refresh", true, "Query the appliance instead of returning the last record")
	statsCmd.Flags().Bool("json", false, "Print the record as JSON")
}
