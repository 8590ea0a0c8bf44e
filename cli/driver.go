package cli

import (
	"context"
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
	_ "github.com/djandroidboy/cinder/sdk/storage/nexenta"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newVolumeDriver builds and sets up the configured driver
var newVolumeDriver = func(ctx context.Context) (storage.VolumeDriver, error) {
	logrus.Debug("initializing volume driver: ", Config.Driver)
	d, err := storage.NewVolumeDriver(Config.Driver, viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := d.Setup(ctx); err != nil {
		return nil, fmt.Errorf("setup %s driver: %w", d.WhoAmI(), err)
	}
	return d, nil
}

// volumeFromFlags reads --name, --id, --size and --status. The name defaults
// to the backend name Cinder gives volume --id.
func volumeFromFlags(cmd *cobra.Command) (storage.Volume, error) {
	var volume storage.Volume
	if val, err := cmd.Flags().GetString("name"); err == nil {
		volume.Name = val
	}
	if val, err := cmd.Flags().GetString("id"); err == nil {
		volume.ID = val
	}
	if val, err := cmd.Flags().GetInt64("size"); err == nil {
		volume.Size = val
	}
	if val, err := cmd.Flags().GetString("status"); err == nil {
		volume.Status = val
	}
	if volume.Name == "" && volume.ID != "" {
		volume.Name = "volume-" + volume.ID
	}
	if volume.Name == "" {
		return volume, fmt.Errorf("--name or --id is required")
	}
	return volume, nil
}

var listDriversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "list registered volume drivers",
	Long:  "list registered volume drivers",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range storage.GetVolumeDrivers() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check the appliance setup",
	Long:  "connect to the appliance and verify that the configured pool exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newVolumeDriver(cmd.Context())
		if err != nil {
			return err
		}
		if err := d.CheckForSetupError(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s driver ready, pool %s found on %s\n", d.WhoAmI(), Config.Pool, Config.Host)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listDriversCmd, checkCmd)
}
