package cinder

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/schedulerstats"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumes"
	"k8s.io/klog/v2"
)

// volumeNameTemplate is the backend name Cinder gives a volume by default
const volumeNameTemplate = "volume-%s"

// AccessInfo holds the Keystone credentials of the Cinder deployment
type AccessInfo struct {
	AuthURL    string
	Username   string
	Password   string
	TenantName string
	DomainName string
	Region     string
	Insecure   bool
}

// Client reads volume and pool descriptors from Cinder
type Client struct {
	client *gophercloud.ServiceClient
}

// New wraps an authenticated block storage service client
func New(client *gophercloud.ServiceClient) *Client {
	return &Client{client: client}
}

// Connect authenticates against Keystone and opens the block storage v3 endpoint
func Connect(ctx context.Context, accessInfo AccessInfo) (*Client, error) {
	opts := gophercloud.AuthOptions{
		IdentityEndpoint: accessInfo.AuthURL,
		Username:         accessInfo.Username,
		Password:         accessInfo.Password,
		TenantName:       accessInfo.TenantName,
		DomainName:       accessInfo.DomainName,
		AllowReauth:      true,
		Scope: &gophercloud.AuthScope{
			ProjectName: accessInfo.TenantName,
			DomainName:  accessInfo.DomainName,
		},
	}

	providerClient, err := openstack.NewClient(accessInfo.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider client: %w", err)
	}
	if accessInfo.Insecure {
		providerClient.HTTPClient = http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}
		klog.Infof("TLS verification disabled (insecure mode)")
	}
	if err := openstack.Authenticate(ctx, providerClient, opts); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	client, err := openstack.NewBlockStorageV3(providerClient, gophercloud.EndpointOpts{Region: accessInfo.Region})
	if err != nil {
		return nil, fmt.Errorf("failed to create cinder client: %w", err)
	}
	klog.Infof("Connected to Cinder at %s (region=%s)", accessInfo.AuthURL, accessInfo.Region)
	return New(client), nil
}

// GetVolume returns the descriptor of a Cinder volume, named the way the
// backend knows it
func (c *Client) GetVolume(ctx context.Context, volumeID string) (storage.Volume, error) {
	vol, err := volumes.Get(ctx, c.client, volumeID).Extract()
	if err != nil {
		return storage.Volume{}, fmt.Errorf("get volume %s: %w", volumeID, err)
	}
	return storage.Volume{
		ID:     vol.ID,
		Name:   fmt.Sprintf(volumeNameTemplate, vol.ID),
		Size:   int64(vol.Size),
		Status: vol.Status,
	}, nil
}

// GetHost describes the scheduler pool poolName ("host@backend#pool") as a
// migration destination. The portal port and management URL are not part of
// the scheduler stats and are taken from the caller.
func (c *Client) GetHost(ctx context.Context, poolName string, portalPort int, managementURL string) (storage.Host, error) {
	pages, err := schedulerstats.List(c.client, schedulerstats.ListOpts{Detail: true}).AllPages(ctx)
	if err != nil {
		return storage.Host{}, fmt.Errorf("list scheduler pools: %w", err)
	}
	pools, err := schedulerstats.ExtractStoragePools(pages)
	if err != nil {
		return storage.Host{}, fmt.Errorf("extract scheduler pools: %w", err)
	}

	for _, pool := range pools {
		if pool.Name != poolName {
			continue
		}
		klog.V(2).Infof("Pool %s: vendor=%s location=%s free=%.2fGB", pool.Name,
			pool.Capabilities.VendorName, pool.Capabilities.LocationInfo, pool.Capabilities.FreeCapacityGB)
		return storage.Host{
			Name: pool.Name,
			Capabilities: &storage.Capabilities{
				VendorName:            pool.Capabilities.VendorName,
				LocationInfo:          pool.Capabilities.LocationInfo,
				ISCSITargetPortalPort: portalPort,
				FreeCapacityGB:        pool.Capabilities.FreeCapacityGB,
				ManagementURL:         managementURL,
			},
		}, nil
	}
	return storage.Host{}, fmt.Errorf("scheduler pool %s not found", poolName)
}
