package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var volumeDrivers = make(map[string]DriverFactory)

// VolumeDriver defines the interface for block storage backends driven by the
// volume manager. Every method issues blocking remote calls.
type VolumeDriver interface {
	// Setup establishes the management session with the backend
	Setup(ctx context.Context) error

	// CheckForSetupError verifies that the configured pool exists on the backend
	CheckForSetupError(ctx context.Context) error

	// CreateVolume allocates a volume and exports it
	CreateVolume(ctx context.Context, volume Volume) (ModelUpdate, error)

	// CreateVolumeFromSnapshot clones a snapshot into a new volume
	CreateVolumeFromSnapshot(ctx context.Context, volume Volume, snapshot Snapshot) error

	// CreateClonedVolume creates volume as a clone of src
	CreateClonedVolume(ctx context.Context, volume Volume, src Volume) error

	// ExtendVolume grows a volume to newSize GB
	ExtendVolume(ctx context.Context, volume Volume, newSize int64) error

	// DeleteVolume destroys a volume; deleting a missing volume is not an error
	DeleteVolume(ctx context.Context, volume Volume) error

	// CreateSnapshot creates a snapshot of an existing volume
	CreateSnapshot(ctx context.Context, snapshot Snapshot) error

	// DeleteSnapshot destroys a snapshot; deleting a missing snapshot is not an error
	DeleteSnapshot(ctx context.Context, snapshot Snapshot) error

	// CreateExport provisions the export path of a volume in strict mode
	CreateExport(ctx context.Context, volume Volume) (ModelUpdate, error)

	// EnsureExport recreates missing parts of the export path
	EnsureExport(ctx context.Context, volume Volume) error

	// RemoveExport tears down the export path
	RemoveExport(ctx context.Context, volume Volume) error

	// MigrateVolume moves a volume to another backend when both sides allow it.
	// The boolean reports whether the volume was moved.
	MigrateVolume(ctx context.Context, volume Volume, host Host) (bool, ModelUpdate, error)

	// GetVolumeStats returns backend capabilities, refreshing them first if asked
	GetVolumeStats(ctx context.Context, refresh bool) (VolumeStats, error)

	// WhoAmI returns the driver name
	WhoAmI() string
}

// Configuration is the option source a driver reads its settings from.
// *viper.Viper satisfies it.
type Configuration interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	IsSet(key string) bool
}

// DriverFactory builds a driver from configuration
type DriverFactory func(conf Configuration) (VolumeDriver, error)

// Volume is the part of a volume record a driver reads
type Volume struct {
	ID     string
	Name   string
	Size   int64 // GB
	Status string
}

// Snapshot identifies a snapshot by its volume and its own name
type Snapshot struct {
	VolumeName string
	Name       string
}

// ModelUpdate holds the volume fields the caller must persist
type ModelUpdate struct {
	ProviderLocation string `json:"provider_location,omitempty"`
}

// Host describes a migration destination
type Host struct {
	Name         string
	Capabilities *Capabilities
}

// Capabilities is the subset of a backend's stats consulted before migration
type Capabilities struct {
	VendorName            string  `json:"vendor_name"`
	LocationInfo          string  `json:"location_info"`
	ISCSITargetPortalPort int     `json:"iscsi_target_portal_port"`
	FreeCapacityGB        float64 `json:"free_capacity_gb"`
	ManagementURL         string  `json:"management_url"`
}

// VolumeStats is the capability record reported to the scheduler
type VolumeStats struct {
	VendorName            string  `json:"vendor_name"`
	DriverVersion         string  `json:"driver_version"`
	StorageProtocol       string  `json:"storage_protocol"`
	TotalCapacityGB       float64 `json:"total_capacity_gb"`
	FreeCapacityGB        float64 `json:"free_capacity_gb"`
	ReservedPercentage    int     `json:"reserved_percentage"`
	QoSSupport            bool    `json:"QoS_support"`
	VolumeBackendName     string  `json:"volume_backend_name"`
	LocationInfo          string  `json:"location_info"`
	ISCSITargetPortalPort int     `json:"iscsi_target_portal_port"`
	ManagementURL         string  `json:"management_url"`
}

// Capabilities projects the stats record onto the fields a migration
// source inspects.
func (s VolumeStats) Capabilities() *Capabilities {
	return &Capabilities{
		VendorName:            s.VendorName,
		LocationInfo:          s.LocationInfo,
		ISCSITargetPortalPort: s.ISCSITargetPortalPort,
		FreeCapacityGB:        s.FreeCapacityGB,
		ManagementURL:         s.ManagementURL,
	}
}

// StorageAccessInfo holds connection information for a management endpoint
type StorageAccessInfo struct {
	Hostname            string
	Port                int
	Protocol            string
	Path                string
	Username            string
	Password            string
	SkipSSLVerification bool
	Retries             int
}

// RegisterVolumeDriver registers a volume driver factory
func RegisterVolumeDriver(name string, factory DriverFactory) {
	volumeDrivers[strings.ToLower(name)] = factory
}

// DeleteVolumeDriver removes a volume driver
func DeleteVolumeDriver(name string) {
	delete(volumeDrivers, strings.ToLower(name))
}

// GetVolumeDrivers returns all registered driver names
func GetVolumeDrivers() []string {
	var names []string
	for name := range volumeDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewVolumeDriver creates a registered driver by name
func NewVolumeDriver(name string, conf Configuration) (VolumeDriver, error) {
	factory, ok := volumeDrivers[strings.ToLower(name)]
	if !ok {
		return nil, errors.New("volume driver not found: " + name)
	}
	return factory(conf)
}
