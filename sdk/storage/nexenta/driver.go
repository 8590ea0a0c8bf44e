package nexenta

import (
	"context"
	"fmt"
	"strings"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// DriverName identifies the driver in location info and backend names
	DriverName      = "NexentaISCSIDriver"
	DriverVersion   = "1.2.1"
	VendorName      = "Nexenta"
	StorageProtocol = "iSCSI"

	cloneSnapshotPrefix   = "cinder-clone-snapshot-"
	migrateSnapshotPrefix = "cinder-migrate-snapshot-"
)

var _ storage.VolumeDriver = (*Driver)(nil)

func init() {
	storage.RegisterVolumeDriver("nexenta", func(conf storage.Configuration) (storage.VolumeDriver, error) {
		d, err := NewFromConfig(conf)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Driver executes volume driver commands on a NexentaStor appliance
type Driver struct {
	opts Options
	nms  Client

	// dialNMS connects to another appliance given its management URL
	dialNMS func(rawURL string) (Client, error)

	stats *storage.VolumeStats
}

// New returns a driver talking to nms. A nil nms is created by Setup.
func New(opts Options, nms Client) *Driver {
	d := &Driver{opts: opts, nms: nms}
	d.dialNMS = func(rawURL string) (Client, error) {
		return DialNMS(rawURL, d.opts.Insecure, d.opts.RestRetries)
	}
	return d
}

// NewFromConfig builds an unconnected driver from configuration
func NewFromConfig(conf storage.Configuration) (*Driver, error) {
	opts, err := OptionsFromConfig(conf)
	if err != nil {
		return nil, errors.Wrap(err, "invalid nexenta configuration")
	}
	return New(opts, nil), nil
}

// WhoAmI returns the registry name of the driver
func (d *Driver) WhoAmI() string {
	return "nexenta"
}

// Options returns the driver settings
func (d *Driver) Options() Options {
	return d.opts
}

// Setup creates the NMS client
func (d *Driver) Setup(ctx context.Context) error {
	if d.nms != nil {
		return nil
	}
	d.nms = NewJSONProxy(d.opts.accessInfo())
	klog.Infof("Using NMS at %s", d.nms.URL())
	return nil
}

// CheckForSetupError verifies that the configured pool exists
func (d *Driver) CheckForSetupError(ctx context.Context) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	raw, err := nms.Call(ctx, "volume", "object_exists", d.opts.Pool)
	if err != nil {
		return err
	}
	exists, err := decodeBool(raw)
	if err != nil {
		return errors.Wrap(err, "volume.object_exists")
	}
	if !exists {
		return &PoolNotFoundError{Pool: d.opts.Pool}
	}
	return nil
}

func (d *Driver) client() (Client, error) {
	if d.nms == nil {
		return nil, errors.New("nexenta driver is not set up")
	}
	return d.nms, nil
}

// ExportTarget names the appliance objects that export one volume
type ExportTarget struct {
	TargetName      string
	TargetGroupName string
	ZvolName        string
	LUN             int
}

// ExportTarget derives the export names of a volume
func (d *Driver) ExportTarget(volumeName string) ExportTarget {
	return ExportTarget{
		TargetName:      d.targetName(volumeName),
		TargetGroupName: d.opts.TargetGroupPrefix + volumeName,
		ZvolName:        d.zvolName(volumeName),
		LUN:             0,
	}
}

func (d *Driver) zvolName(volumeName string) string {
	return d.opts.Pool + "/" + volumeName
}

func (d *Driver) targetName(volumeName string) string {
	return d.opts.TargetPrefix + volumeName
}

func (d *Driver) snapshotPath(snapshot storage.Snapshot) string {
	return d.zvolName(snapshot.VolumeName) + "@" + snapshot.Name
}

// providerLocation renders the iscsiadm portal string consumed by initiators
func providerLocation(host string, port int, targetName string) string {
	return fmt.Sprintf("%s:%d,1 %s 0", host, port, targetName)
}

// CloneSnapshotName is the name of the snapshot a clone of volume is created from
func CloneSnapshotName(volume storage.Volume) string {
	return cloneSnapshotPrefix + volume.ID
}

// IsCloneSnapshotName reports whether name marks a snapshot kept as a clone's origin
func IsCloneSnapshotName(name string) bool {
	return strings.HasPrefix(name, cloneSnapshotPrefix)
}

// LocalPath is not supported: volumes are never local to the driver host
func (d *Driver) LocalPath(volume storage.Volume) (string, error) {
	return "", errors.Errorf("volume %s has no local path", volume.Name)
}
