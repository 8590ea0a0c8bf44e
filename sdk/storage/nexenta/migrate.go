package nexenta

import (
	"context"
	"strings"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// MigrationContext holds the state of one migration
type MigrationContext struct {
	Volume   storage.Volume
	Snapshot storage.Snapshot
	DestHost string
	DestPool string
	DestPort int
	DestURL  string
	// Dest is the destination appliance, dialled from DestURL when nil
	Dest Client
}

// MigrateVolume moves the volume to another Nexenta pool with rrmgr through a
// temporary snapshot. It reports false without error when the destination is
// not eligible or the replication fails.
func (d *Driver) MigrateVolume(ctx context.Context, volume storage.Volume, host storage.Host) (bool, storage.ModelUpdate, error) {
	klog.V(4).Infof("Enter: migrate_volume: id=%s, host=%s", volume.ID, host.Name)

	mc, ok := d.migrationContext(volume, host)
	if !ok {
		return false, storage.ModelUpdate{}, nil
	}
	nms, err := d.client()
	if err != nil {
		return false, storage.ModelUpdate{}, err
	}

	d.checkSSHBinding(ctx, nms, mc.DestHost)

	mc.Snapshot = storage.Snapshot{VolumeName: volume.Name, Name: migrateSnapshotName(volume)}
	if err := d.CreateSnapshot(ctx, mc.Snapshot); err != nil {
		klog.Warningf("Cannot create temporary snapshot %s: %v", d.snapshotPath(mc.Snapshot), err)
		return false, storage.ModelUpdate{}, nil
	}
	if !d.replicate(ctx, nms, mc) {
		return false, storage.ModelUpdate{}, nil
	}

	// the volume lives on the destination now; cancellation must not strand
	// the source copy or the destination snapshot
	cleanupCtx := context.WithoutCancel(ctx)
	if err := d.DeleteVolume(cleanupCtx, volume); err != nil {
		klog.Warningf("Cannot delete source volume %s on NexentaStor Appliance: %v", volume.Name, err)
	}
	d.releaseDestinationSnapshot(cleanupCtx, mc)

	location := providerLocation(mc.DestHost, mc.DestPort, d.targetName(volume.Name))
	return true, storage.ModelUpdate{ProviderLocation: location}, nil
}

// migrationContext checks that volume may move to host
func (d *Driver) migrationContext(volume storage.Volume, host storage.Host) (*MigrationContext, bool) {
	if volume.Status != "available" {
		klog.V(4).Infof("Volume %s is %s, not migrating", volume.Name, volume.Status)
		return nil, false
	}
	caps := host.Capabilities
	if caps == nil || caps.LocationInfo == "" || caps.ISCSITargetPortalPort == 0 || caps.ManagementURL == "" {
		klog.V(4).Infof("Host %s does not advertise Nexenta capabilities", host.Name)
		return nil, false
	}
	parts := strings.Split(caps.LocationInfo, ":")
	if len(parts) != 3 {
		klog.V(4).Infof("Host %s has malformed location info %q", host.Name, caps.LocationInfo)
		return nil, false
	}
	if caps.VendorName != VendorName || parts[0] != DriverName || caps.FreeCapacityGB < float64(volume.Size) {
		klog.V(4).Infof("Host %s is not an eligible destination for volume %s", host.Name, volume.Name)
		return nil, false
	}
	return &MigrationContext{
		Volume:   volume,
		DestHost: parts[1],
		DestPool: parts[2],
		DestPort: caps.ISCSITargetPortalPort,
		DestURL:  caps.ManagementURL,
	}, true
}

// checkSSHBinding warns when destHost is not among the appliance's ssh bindings
func (d *Driver) checkSSHBinding(ctx context.Context, nms Client, destHost string) {
	raw, err := nms.Call(ctx, "appliance", "ssh_list_bindings")
	if err != nil {
		klog.Warningf("Cannot list SSH bindings: %v", err)
		return
	}
	bindings, err := decodeBindings(raw)
	if err != nil {
		klog.Warningf("Cannot list SSH bindings: %v", err)
		return
	}
	bound := lo.ContainsBy(bindings, func(binding string) bool {
		return strings.Contains(binding, destHost)
	})
	if !bound {
		klog.Warningf("Remote NexentaStor appliance at %s should be SSH-bound.", destHost)
	}
}

// replicate sends the temporary snapshot to the destination. The source
// snapshot is deleted on every return path.
func (d *Driver) replicate(ctx context.Context, nms Client, mc *MigrationContext) bool {
	src := d.snapshotPath(mc.Snapshot)
	dst := mc.DestHost + ":" + mc.DestPool
	defer func() {
		if err := d.DeleteSnapshot(context.WithoutCancel(ctx), mc.Snapshot); err != nil {
			klog.Warningf("Cannot delete temporary source snapshot %s on NexentaStor Appliance: %v", src, err)
		}
	}()

	cmd := rrmgrCommand(src, dst, d.opts.RrmgrCompression, d.opts.RrmgrTCPBufSize, d.opts.RrmgrConnections)
	if _, err := nms.Call(ctx, "appliance", "execute", cmd); err != nil {
		klog.Warningf("Cannot send source snapshot %s to destination %s. Reason: %v", src, dst, err)
		return false
	}
	return true
}

// releaseDestinationSnapshot connects to the destination appliance and drops
// the snapshot that came along with the replicated zvol
func (d *Driver) releaseDestinationSnapshot(ctx context.Context, mc *MigrationContext) {
	dstSnapshot := mc.DestPool + "/" + mc.Volume.Name + "@" + mc.Snapshot.Name

	if mc.Dest == nil {
		dest, err := d.dialNMS(mc.DestURL)
		if err != nil {
			klog.Warningf("Cannot connect to destination NexentaStor Appliance at %s: %v", mc.DestURL, err)
			return
		}
		mc.Dest = dest
	}
	if err := destroySnapshot(ctx, mc.Dest, dstSnapshot, mc.Snapshot.Name); err != nil {
		klog.Warningf("Cannot delete temporary destination snapshot %s on NexentaStor Appliance: %v", dstSnapshot, err)
	}
}
