package nexenta

import (
	"context"
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
	"k8s.io/klog/v2"
)

// CreateVolume creates a zvol and exports it
func (d *Driver) CreateVolume(ctx context.Context, volume storage.Volume) (storage.ModelUpdate, error) {
	nms, err := d.client()
	if err != nil {
		return storage.ModelUpdate{}, err
	}
	_, err = nms.Call(ctx, "zvol", "create",
		d.zvolName(volume.Name), sizeGB(volume.Size), d.opts.Blocksize, d.opts.Sparse)
	if err != nil {
		return storage.ModelUpdate{}, err
	}
	return d.CreateExport(ctx, volume)
}

// ExtendVolume grows the zvol to newSize GB
func (d *Driver) ExtendVolume(ctx context.Context, volume storage.Volume, newSize int64) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	klog.Infof("Extending volume: %s New size: %d GB", volume.ID, newSize)
	_, err = nms.Call(ctx, "zvol", "set_child_prop", d.zvolName(volume.Name), "volsize", sizeGB(newSize))
	return err
}

// DeleteVolume destroys the zvol. When the zvol was cloned from a clone
// snapshot, that snapshot is deleted afterwards on a best-effort basis.
func (d *Driver) DeleteVolume(ctx context.Context, volume storage.Volume) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	zvol := d.zvolName(volume.Name)

	raw, err := nms.Call(ctx, "zvol", "get_child_props", zvol, "origin")
	if err != nil {
		if IsKind(err, NotFound) {
			klog.Infof("Volume %s does not exist, it seems it was already deleted", zvol)
			return nil
		}
		return err
	}
	props, err := decodeProps(raw)
	if err != nil {
		return err
	}

	if _, err := nms.Call(ctx, "zvol", "destroy", zvol, ""); err != nil {
		switch Classify(err).Kind {
		case NotFound:
			klog.Infof("Volume %s does not exist, it seems it was already deleted", zvol)
			return nil
		case Busy:
			return &VolumeIsBusyError{VolumeName: zvol}
		}
		return err
	}

	origin := props["origin"]
	if origin == "" {
		return nil
	}
	snapshot, ok := splitOrigin(origin, d.opts.Pool)
	if !ok || !IsCloneSnapshotName(snapshot.Name) {
		return nil
	}
	if err := d.DeleteSnapshot(context.WithoutCancel(ctx), snapshot); err != nil {
		klog.Warningf("Cannot delete snapshot %s: %v", origin, err)
	}
	return nil
}

// CreateClonedVolume clones src through a clone snapshot. The snapshot stays
// as the origin of the new volume and is reclaimed when that volume is deleted.
func (d *Driver) CreateClonedVolume(ctx context.Context, volume storage.Volume, src storage.Volume) error {
	snapshot := storage.Snapshot{VolumeName: src.Name, Name: CloneSnapshotName(volume)}
	klog.V(4).Infof("Creating temp snapshot of the original volume: %s", d.snapshotPath(snapshot))
	if err := d.CreateSnapshot(ctx, snapshot); err != nil {
		return err
	}

	err := d.CreateVolumeFromSnapshot(ctx, volume, snapshot)
	if err == nil {
		return nil
	}
	klog.Errorf("Volume creation failed, deleting created snapshot %s", d.snapshotPath(snapshot))
	if cleanupErr := d.DeleteSnapshot(context.WithoutCancel(ctx), snapshot); cleanupErr != nil {
		klog.Warningf("Failed to delete zfs snapshot %s: %v", d.snapshotPath(snapshot), cleanupErr)
	}
	return err
}

// CreateSnapshot snapshots an existing zvol
func (d *Driver) CreateSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	_, err = nms.Call(ctx, "zvol", "create_snapshot", d.zvolName(snapshot.VolumeName), snapshot.Name, "")
	return err
}

// CreateVolumeFromSnapshot clones snapshot into a new zvol
func (d *Driver) CreateVolumeFromSnapshot(ctx context.Context, volume storage.Volume, snapshot storage.Snapshot) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	_, err = nms.Call(ctx, "zvol", "clone", d.snapshotPath(snapshot), d.zvolName(volume.Name))
	return err
}

// DeleteSnapshot destroys a snapshot. A missing snapshot is not an error.
func (d *Driver) DeleteSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	return destroySnapshot(ctx, nms, d.snapshotPath(snapshot), snapshot.Name)
}

// destroySnapshot runs snapshot.destroy on path; shortName is reported when
// the snapshot is busy
func destroySnapshot(ctx context.Context, nms Client, path, shortName string) error {
	_, err := nms.Call(ctx, "snapshot", "destroy", path, "")
	if err == nil {
		return nil
	}
	switch Classify(err).Kind {
	case NotFound:
		klog.Infof("Snapshot %s does not exist, it seems it was already deleted", path)
		return nil
	case Busy:
		return &SnapshotIsBusyError{SnapshotName: shortName}
	}
	return err
}

func sizeGB(size int64) string {
	return fmt.Sprintf("%dG", size)
}
