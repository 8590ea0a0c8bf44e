package nexenta

import (
	"fmt"

	"github.com/djandroidboy/cinder/sdk/storage"
)

// Configuration keys read by the driver
const (
	OptRestProtocol          = "nexenta_rest_protocol"
	OptHost                  = "nexenta_host"
	OptRestPort              = "nexenta_rest_port"
	OptUser                  = "nexenta_user"
	OptPassword              = "nexenta_password"
	OptTargetPortalPort      = "nexenta_iscsi_target_portal_port"
	OptVolume                = "nexenta_volume"
	OptTargetPrefix          = "nexenta_target_prefix"
	OptTargetGroupPrefix     = "nexenta_target_group_prefix"
	OptBlocksize             = "nexenta_blocksize"
	OptSparse                = "nexenta_sparse"
	OptRrmgrCompression      = "nexenta_rrmgr_compression"
	OptRrmgrTCPBufSize       = "nexenta_rrmgr_tcp_buf_size"
	OptRrmgrConnections      = "nexenta_rrmgr_connections"
	OptInsecure              = "nexenta_insecure"
	OptRestRetries           = "nexenta_rest_retries"
	OptVolumeBackendName     = "volume_backend_name"
	defaultTargetPrefix      = "iqn.1986-03.com.sun:02:cinder-"
	defaultTargetGroupPrefix = "cinder/"
)

// Options holds the driver settings
type Options struct {
	RestProtocol      string
	Host              string
	RestPort          int
	User              string
	Password          string
	TargetPortalPort  int
	Pool              string
	TargetPrefix      string
	TargetGroupPrefix string
	Blocksize         string
	Sparse            bool
	RrmgrCompression  int
	RrmgrTCPBufSize   int
	RrmgrConnections  int
	Insecure          bool
	RestRetries       int
	VolumeBackendName string
}

// DefaultOptions returns the settings used for keys that are not configured
func DefaultOptions() Options {
	return Options{
		RestProtocol:      "auto",
		RestPort:          defaultNMSPort,
		User:              defaultNMSUser,
		Password:          defaultNMSPassword,
		TargetPortalPort:  3260,
		Pool:              "cinder",
		TargetPrefix:      defaultTargetPrefix,
		TargetGroupPrefix: defaultTargetGroupPrefix,
		RrmgrTCPBufSize:   4096,
		RrmgrConnections:  2,
		RestRetries:       3,
		VolumeBackendName: DriverName,
	}
}

// OptionsFromConfig overlays the configured keys on DefaultOptions
func OptionsFromConfig(conf storage.Configuration) (Options, error) {
	opts := DefaultOptions()
	if conf == nil {
		return opts, fmt.Errorf("no configuration given")
	}

	setString := func(key string, dst *string) {
		if conf.IsSet(key) {
			*dst = conf.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if conf.IsSet(key) {
			*dst = conf.GetInt(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if conf.IsSet(key) {
			*dst = conf.GetBool(key)
		}
	}

	setString(OptRestProtocol, &opts.RestProtocol)
	setString(OptHost, &opts.Host)
	setInt(OptRestPort, &opts.RestPort)
	setString(OptUser, &opts.User)
	setString(OptPassword, &opts.Password)
	setInt(OptTargetPortalPort, &opts.TargetPortalPort)
	setString(OptVolume, &opts.Pool)
	setString(OptTargetPrefix, &opts.TargetPrefix)
	setString(OptTargetGroupPrefix, &opts.TargetGroupPrefix)
	setString(OptBlocksize, &opts.Blocksize)
	setBool(OptSparse, &opts.Sparse)
	setInt(OptRrmgrCompression, &opts.RrmgrCompression)
	setInt(OptRrmgrTCPBufSize, &opts.RrmgrTCPBufSize)
	setInt(OptRrmgrConnections, &opts.RrmgrConnections)
	setBool(OptInsecure, &opts.Insecure)
	setInt(OptRestRetries, &opts.RestRetries)
	setString(OptVolumeBackendName, &opts.VolumeBackendName)
	if opts.VolumeBackendName == "" {
		opts.VolumeBackendName = DriverName
	}

	return opts, opts.Validate()
}

// Validate checks the settings the driver cannot work without
func (o Options) Validate() error {
	switch o.RestProtocol {
	case "http", "https", "auto":
	default:
		return fmt.Errorf("%s must be one of http, https, auto; got %q", OptRestProtocol, o.RestProtocol)
	}
	if o.Host == "" {
		return fmt.Errorf("%s is required", OptHost)
	}
	if o.Pool == "" {
		return fmt.Errorf("%s is required", OptVolume)
	}
	if o.RestPort <= 0 || o.TargetPortalPort <= 0 {
		return fmt.Errorf("%s and %s must be positive", OptRestPort, OptTargetPortalPort)
	}
	return nil
}

// accessInfo is the management endpoint described by the options
func (o Options) accessInfo() storage.StorageAccessInfo {
	return storage.StorageAccessInfo{
		Hostname:            o.Host,
		Port:                o.RestPort,
		Protocol:            o.RestProtocol,
		Path:                defaultNMSPath,
		Username:            o.User,
		Password:            o.Password,
		SkipSSLVerification: o.Insecure,
		Retries:             o.RestRetries,
	}
}
