package cli

import (
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "manage volumes",
	Long:  "create, delete, extend and clone volumes on the appliance",
}

var createVolumeCmd = &cobra.Command{
	Use:   "create",
	Short: "create and export a volume",
	Long:  "create a volume of --size GB and export it; prints the provider location",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		logrus.Infof("Creating volume %s (%d GB)", volume.Name, volume.Size)
		update, err := d.CreateVolume(cmd.Context(), volume)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), update.ProviderLocation)
		return nil
	},
}

var deleteVolumeCmd = &cobra.Command{
	Use:   "delete",
	Short: "delete a volume",
	Long:  "delete a volume; a missing volume is not an error",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		logrus.Infof("Deleting volume %s", volume.Name)
		return d.DeleteVolume(cmd.Context(), volume)
	},
}

var extendVolumeCmd = &cobra.Command{
	Use:   "extend",
	Short: "grow a volume",
	Long:  "grow a volume to --size GB",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		if volume.Size <= 0 {
			return fmt.Errorf("--size is required")
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.ExtendVolume(cmd.Context(), volume, volume.Size)
	},
}

var cloneVolumeCmd = &cobra.Command{
	Use:   "clone",
	Short: "clone a volume",
	Long:  "create volume --name (or --id) as a clone of volume --src",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		src, _ := cmd.Flags().GetString("src")
		if src == "" {
			return fmt.Errorf("--src is required")
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		logrus.Infof("Cloning volume %s into %s", src, volume.Name)
		return d.CreateClonedVolume(cmd.Context(), volume, storage.Volume{Name: src})
	},
}

var volumeFromSnapshotCmd = &cobra.Command{
	Use:   "from-snapshot",
	Short: "create a volume from a snapshot",
	Long:  "create volume --name from snapshot --snapshot of volume --src",
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, err := volumeFromFlags(cmd)
		if err != nil {
			return err
		}
		src, _ := cmd.Flags().GetString("src")
		snapshot, _ := cmd.Flags().GetString("snapshot")
		if src == "" || snapshot == "" {
			return fmt.Errorf("--src and --snapshot are required")
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.CreateVolumeFromSnapshot(cmd.Context(), volume, storage.Snapshot{VolumeName: src, Name: snapshot})
	},
}

func init() {
	rootCmd.AddCommand(volumeCmd)
	volumeCmd.PersistentFlags().StringP("name", "n", "", "Volume name on the appliance")
	volumeCmd.PersistentFlags().String("id", "", "Volume ID; names the volume volume-<id> when --name is empty")
	volumeCmd.PersistentFlags().Int64P("size", "s", 0, "Volume size in GB")

	cloneVolumeCmd.Flags().String("src", "", "Source volume name")
	volumeFromSnapshotCmd.Flags().String("src", "", "Source volume name")
	volumeFromSnapshotCmd.Flags().String("snapshot", "", "Source snapshot name")

	volumeCmd.AddCommand(createVolumeCmd, deleteVolumeCmd, extendVolumeCmd, cloneVolumeCmd, volumeFromSnapshotCmd)
}
