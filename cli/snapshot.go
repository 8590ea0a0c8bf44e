package cli

import (
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/spf13/cobra"
)

func snapshotFromFlags(cmd *cobra.Command) (storage.Snapshot, error) {
	var snapshot storage.Snapshot
	if val, err := cmd.Flags().GetString("volume"); err == nil {
		snapshot.VolumeName = val
	}
	if val, err := cmd.Flags().GetString("name"); err == nil {
		snapshot.Name = val
	}
	if snapshot.VolumeName == "" || snapshot.Name == "" {
		return snapshot, fmt.Errorf("--volume and --name are required")
	}
	return snapshot, nil
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "manage snapshots",
	Long:  "create and delete volume snapshots on the appliance",
}

var createSnapshotCmd = &cobra.Command{
	Use:   "create",
	Short: "create a snapshot",
	Long:  "create a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := snapshotFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.CreateSnapshot(cmd.Context(), snapshot)
	},
}

var deleteSnapshotCmd = &cobra.Command{
	Use:   "delete",
	Short: "delete a snapshot",
	Long:  "delete a snapshot; a missing snapshot is not an error",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := snapshotFromFlags(cmd)
		if err != nil {
			return err
		}
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		return d.DeleteSnapshot(cmd.Context(), snapshot)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.PersistentFlags().String("volume", "", "Volume the snapshot belongs to")
	snapshotCmd.PersistentFlags().StringP("name", "n", "", "Snapshot name")
	snapshotCmd.AddCommand(createSnapshotCmd, deleteSnapshotCmd)
}
