package cli

import (
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage/nexenta"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "show version",
	Long:  "show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "nexentactl version", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", nexenta.DriverName, nexenta.DriverVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
