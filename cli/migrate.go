package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/djandroidboy/cinder/sdk/storage/cinder"
	"github.com/djandroidboy/cinder/sdk/storage/nexenta"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultNMSURLTemplate = "auto://%s:2000/rest/nms/"

// destinationHost describes a Nexenta pool given on the command line the way
// its driver would report it to the scheduler
func destinationHost(host, pool string, port int, managementURL string, freeGB float64) storage.Host {
	if managementURL == "" {
		managementURL = fmt.Sprintf(defaultNMSURLTemplate, host)
	}
	return storage.Host{
		Name: host,
		Capabilities: &storage.Capabilities{
			VendorName:            nexenta.VendorName,
			LocationInfo:          strings.Join([]string{nexenta.DriverName, host, pool}, ":"),
			ISCSITargetPortalPort: port,
			FreeCapacityGB:        freeGB,
			ManagementURL:         managementURL,
		},
	}
}

// fillManagementURL points a scheduler-reported host at the NMS of the
// appliance named in its location info
func fillManagementURL(host *storage.Host) {
	if host.Capabilities == nil || host.Capabilities.ManagementURL != "" {
		return
	}
	parts := strings.Split(host.Capabilities.LocationInfo, ":")
	if len(parts) == 3 {
		host.Capabilities.ManagementURL = fmt.Sprintf(defaultNMSURLTemplate, parts[1])
	}
}

func cinderAccessInfo() cinder.AccessInfo {
	return cinder.AccessInfo{
		AuthURL:    viper.GetString("os_auth_url"),
		Username:   viper.GetString("os_username"),
		Password:   viper.GetString("os_password"),
		TenantName: viper.GetString("os_tenant_name"),
		DomainName: viper.GetString("os_domain_name"),
		Region:     viper.GetString("os_region_name"),
		Insecure:   viper.GetBool("os_insecure"),
	}
}

// migrationFromCinder looks the volume and the destination pool up in Cinder
func migrationFromCinder(ctx context.Context, cmd *cobra.Command, port int, managementURL string) (storage.Volume, storage.Host, error) {
	volumeID, _ := cmd.Flags().GetString("volume-id")
	poolName, _ := cmd.Flags().GetString("dest-pool-name")
	if volumeID == "" || poolName == "" {
		return storage.Volume{}, storage.Host{}, fmt.Errorf("--volume-id and --dest-pool-name are required with --from-cinder")
	}
	accessInfo := cinderAccessInfo()
	if accessInfo.AuthURL == "" {
		return storage.Volume{}, storage.Host{}, fmt.Errorf("os_auth_url is not set")
	}

	client, err := cinder.Connect(ctx, accessInfo)
	if err != nil {
		return storage.Volume{}, storage.Host{}, err
	}
	volume, err := client.GetVolume(ctx, volumeID)
	if err != nil {
		return storage.Volume{}, storage.Host{}, err
	}
	host, err := client.GetHost(ctx, poolName, port, managementURL)
	if err != nil {
		return storage.Volume{}, storage.Host{}, err
	}
	fillManagementURL(&host)
	return volume, host, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "migrate a volume to another appliance",
	Long: `migrate a volume to a pool on another NexentaStor appliance with rrmgr.
The destination is either described with --dest-* flags or looked up in Cinder with --from-cinder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fromCinder, _ := cmd.Flags().GetBool("from-cinder")
		port, _ := cmd.Flags().GetInt("dest-port")
		managementURL, _ := cmd.Flags().GetString("dest-url")

		var volume storage.Volume
		var host storage.Host
		var err error
		if fromCinder {
			volume, host, err = migrationFromCinder(ctx, cmd, port, managementURL)
			if err != nil {
				return err
			}
		} else {
			volume, err = volumeFromFlags(cmd)
			if err != nil {
				return err
			}
			destHost, _ := cmd.Flags().GetString("dest-host")
			destPool, _ := cmd.Flags().GetString("dest-pool")
			freeGB, _ := cmd.Flags().GetFloat64("free-gb")
			if !cmd.Flags().Changed("free-gb") {
				freeGB = float64(volume.Size)
			}
			if destHost == "" || destPool == "" {
				return fmt.Errorf("--dest-host and --dest-pool are required")
			}
			host = destinationHost(destHost, destPool, port, managementURL, freeGB)
		}

		d, err := newVolumeDriver(ctx)
		if err != nil {
			return err
		}
		logrus.Infof("Migrating volume %s to %s", volume.Name, host.Name)
		moved, update, err := d.MigrateVolume(ctx, volume, host)
		if err != nil {
			return err
		}
		if !moved {
			fmt.Fprintln(cmd.OutOrStdout(), "volume was not migrated")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), update.ProviderLocation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringP("name", "n", "", "Volume name on the appliance")
	migrateCmd.Flags().String("id", "", "Volume ID; names the volume volume-<id> when --name is empty")
	migrateCmd.Flags().Int64P("size", "s", 0, "Volume size in GB")
	migrateCmd.Flags().String("status", "available", "Volume status")
	migrateCmd.Flags().String("dest-host", "", "Destination appliance host")
	migrateCmd.Flags().String("dest-pool", "", "Destination NexentaStor volume")
	migrateCmd.Flags().Int("dest-port", 3260, "Destination iSCSI portal port")
	migrateCmd.Flags().String("dest-url", "", "Destination NMS URL, default auto://<dest-host>:2000/rest/nms/")
	migrateCmd.Flags().Float64("free-gb", 0, "Free capacity of the destination pool in GB, default the volume size")

	migrateCmd.Flags().Bool("from-cinder", false, "Look the volume and destination pool up in Cinder")
	migrateCmd.Flags().String("volume-id", "", "Cinder volume ID")
	migrateCmd.Flags().String("dest-pool-name", "", "Cinder scheduler pool, host@backend#pool")
}
