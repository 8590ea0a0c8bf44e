package nexenta

import (
	"context"
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/pkg/errors"
)

// GetVolumeStats returns the backend stats, querying the appliance first when
// refresh is set or nothing was collected yet.
func (d *Driver) GetVolumeStats(ctx context.Context, refresh bool) (storage.VolumeStats, error) {
	if refresh || d.stats == nil {
		if err := d.updateVolumeStats(ctx); err != nil {
			return storage.VolumeStats{}, err
		}
	}
	return *d.stats, nil
}

func (d *Driver) updateVolumeStats(ctx context.Context) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	raw, err := nms.Call(ctx, "volume", "get_child_props", d.opts.Pool, "health|size|used|available")
	if err != nil {
		return err
	}
	props, err := decodeProps(raw)
	if err != nil {
		return err
	}
	total, err := str2GiB(props["size"])
	if err != nil {
		return errors.Wrapf(err, "pool %s size", d.opts.Pool)
	}
	free, err := str2GiB(props["available"])
	if err != nil {
		return errors.Wrapf(err, "pool %s available", d.opts.Pool)
	}

	d.stats = &storage.VolumeStats{
		VendorName:            VendorName,
		DriverVersion:         DriverVersion,
		StorageProtocol:       StorageProtocol,
		TotalCapacityGB:       total,
		FreeCapacityGB:        free,
		ReservedPercentage:    0,
		QoSSupport:            false,
		VolumeBackendName:     d.opts.VolumeBackendName,
		LocationInfo:          fmt.Sprintf("%s:%s:%s", DriverName, d.opts.Host, d.opts.Pool),
		ISCSITargetPortalPort: d.opts.TargetPortalPort,
		ManagementURL:         nms.URL(),
	}
	return nil
}
