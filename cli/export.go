package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "manage iSCSI exports",
	Long:  "create, repair and remove the iSCSI export of a volume",
}

var createExportCmd = &cobra.Command{
	Use:   "create",
	Short: "export a volume",
	Long:  "export a volume as LUN 0 of its own target; any appliance error aborts",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		update, err := d.CreateExport(cmd.Context(), volume)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), update.ProviderLocation)
		return nil
	},
}

var ensureExportCmd = &cobra.Command{
	Use:   "ensure",
	Short: "repair the export of a volume",
	Long:  "recreate whatever part of the export of a volume is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.EnsureExport(cmd.Context(), volume)
	},
}

var removeExportCmd = &cobra.Command{
	Use:   "remove",
	Short: "remove the export of a volume",
	Long:  "remove the export of a volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.RemoveExport(cmd.Context(), volume)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.PersistentFlags().StringP("name", "n", "", "Volume name on the appliance")
	exportCmd.PersistentFlags().String("id", "", "Volume ID; names the volume volume-<id> when --name is empty")
	exportCmd.AddCommand(createExportCmd, ensureExportCmd, removeExportCmd)
}
