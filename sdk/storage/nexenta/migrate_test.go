package nexenta

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func destinationHost() storage.Host {
	return storage.Host{
		Name: "dest@nexenta#dstpool",
		Capabilities: &storage.Capabilities{
			VendorName:            "Nexenta",
			LocationInfo:          "NexentaISCSIDriver:desthost:dstpool",
			ISCSITargetPortalPort: 3261,
			FreeCapacityGB:        100,
			ManagementURL:         "auto://desthost:2000/rest/nms/",
		},
	}
}

// migrationSource is a source appliance where every call of the workflow succeeds
func migrationSource() *fakeNMS {
	return newFakeNMS().returns("appliance.ssh_list_bindings", map[string]string{
		"root@desthost:22": "bound",
	})
}

func noDial(t *testing.T) func(string) (Client, error) {
	return func(rawURL string) (Client, error) {
		t.Fatalf("destination %s must not be contacted", rawURL)
		return nil, nil
	}
}

func TestMigrateVolumeNotApplicable(t *testing.T) {
	tests := []struct {
		name   string
		volume func(v storage.Volume) storage.Volume
		host   func(h storage.Host) storage.Host
	}{
		{
			name:   "volume in use",
			volume: func(v storage.Volume) storage.Volume { v.Status = "in-use"; return v },
		},
		{
			name: "no capabilities",
			host: func(h storage.Host) storage.Host { h.Capabilities = nil; return h },
		},
		{
			name: "other vendor",
			host: func(h storage.Host) storage.Host { h.Capabilities.VendorName = "Pure"; return h },
		},
		{
			name: "other driver",
			host: func(h storage.Host) storage.Host {
				h.Capabilities.LocationInfo = "NexentaNFSDriver:desthost:dstpool"
				return h
			},
		},
		{
			name: "malformed location info",
			host: func(h storage.Host) storage.Host {
				h.Capabilities.LocationInfo = "NexentaISCSIDriver:desthost"
				return h
			},
		},
		{
			name: "no management url",
			host: func(h storage.Host) storage.Host { h.Capabilities.ManagementURL = ""; return h },
		},
		{
			name: "no portal port",
			host: func(h storage.Host) storage.Host { h.Capabilities.ISCSITargetPortalPort = 0; return h },
		},
		{
			name: "not enough space",
			host: func(h storage.Host) storage.Host { h.Capabilities.FreeCapacityGB = 4.5; return h },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			volume, host := v1, destinationHost()
			if tt.volume != nil {
				volume = tt.volume(volume)
			}
			if tt.host != nil {
				host = tt.host(host)
			}
			nms := migrationSource()
			d := newTestDriver(nms)
			d.dialNMS = noDial(t)

			moved, update, err := d.MigrateVolume(context.Background(), volume, host)
			require.NoError(t, err)
			assert.False(t, moved)
			assert.Empty(t, update.ProviderLocation)
			assert.Empty(t, nms.keys(), "no appliance call before the checks pass")
		})
	}
}

func TestMigrateVolumeReplicationFailure(t *testing.T) {
	nms := migrationSource().fails("appliance.execute", "rrmgr: connection refused")
	d := newTestDriver(nms)
	d.dialNMS = noDial(t)

	moved, update, err := d.MigrateVolume(context.Background(), v1, destinationHost())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Empty(t, update.ProviderLocation)

	created := nms.callsTo("zvol.create_snapshot")
	require.Len(t, created, 1)
	snapshot := created[0][1].(string)

	assert.Equal(t, [][]interface{}{{"pool/v1@" + snapshot, ""}}, nms.callsTo("snapshot.destroy"),
		"temporary snapshot is deleted exactly once")
	assert.Zero(t, nms.count("zvol.destroy"))
}

func TestMigrateVolumeSnapshotFailure(t *testing.T) {
	nms := migrationSource().fails("zvol.create_snapshot", "out of space")
	d := newTestDriver(nms)
	d.dialNMS = noDial(t)

	moved, _, err := d.MigrateVolume(context.Background(), v1, destinationHost())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Zero(t, nms.count("appliance.execute"))
	assert.Zero(t, nms.count("snapshot.destroy"))
}

func TestMigrateVolume(t *testing.T) {
	ctrl := gomock.NewController(t)
	dest := NewMockClient(ctrl)

	nms := migrationSource()
	d := newTestDriver(nms)

	var dialed string
	d.dialNMS = func(rawURL string) (Client, error) {
		dialed = rawURL
		return dest, nil
	}

	var destSnapshot string
	dest.EXPECT().
		Call(gomock.Any(), "snapshot", "destroy", gomock.Any(), "").
		DoAndReturn(func(_ context.Context, _, _ string, params ...interface{}) (json.RawMessage, error) {
			destSnapshot = params[0].(string)
			return json.RawMessage("null"), nil
		}).
		Times(1)

	moved, update, err := d.MigrateVolume(context.Background(), v1, destinationHost())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "desthost:3261,1 iqn.prefix.v1 0", update.ProviderLocation)
	assert.Equal(t, "auto://desthost:2000/rest/nms/", dialed)

	created := nms.callsTo("zvol.create_snapshot")
	require.Len(t, created, 1)
	assert.Equal(t, "pool/v1", created[0][0])
	snapshot := created[0][1].(string)
	assert.True(t, strings.HasPrefix(snapshot, "cinder-migrate-snapshot-id-1-"))

	assert.Equal(t, [][]interface{}{{
		"rrmgr -s zfs -q -e -w 4096 -n 2 pool/v1@" + snapshot + " desthost:dstpool",
	}}, nms.callsTo("appliance.execute"))
	assert.Equal(t, [][]interface{}{{"pool/v1@" + snapshot, ""}}, nms.callsTo("snapshot.destroy"))
	assert.Equal(t, [][]interface{}{{"pool/v1", ""}}, nms.callsTo("zvol.destroy"))
	assert.Equal(t, "dstpool/v1@"+snapshot, destSnapshot)

	keys := nms.keys()
	assert.Equal(t, "appliance.ssh_list_bindings", keys[0])
	assert.Less(t, indexOf(keys, "appliance.execute"), indexOf(keys, "snapshot.destroy"))
	assert.Less(t, indexOf(keys, "snapshot.destroy"), indexOf(keys, "zvol.destroy"))
}

func TestMigrateVolumeBestEffortCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	dest := NewMockClient(ctrl)
	dest.EXPECT().
		Call(gomock.Any(), "snapshot", "destroy", gomock.Any(), "").
		Return(nil, &Fault{Object: "snapshot", Method: "destroy", Message: "internal error"})

	// unbound appliance listed the old way, every cleanup step failing
	nms := newFakeNMS().
		returns("appliance.ssh_list_bindings", []string{"root@otherhost"}).
		fails("snapshot.destroy", "internal error").
		fails("zvol.destroy", "I/O error")
	d := newTestDriver(nms)
	d.dialNMS = func(string) (Client, error) { return dest, nil }

	moved, update, err := d.MigrateVolume(context.Background(), v1, destinationHost())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "desthost:3261,1 iqn.prefix.v1 0", update.ProviderLocation)
	assert.Equal(t, 1, nms.count("snapshot.destroy"))
}

func TestMigrateVolumeDestinationUnreachable(t *testing.T) {
	nms := migrationSource()
	d := newTestDriver(nms)
	d.dialNMS = func(string) (Client, error) { return nil, errors.New("invalid NMS url") }

	moved, update, err := d.MigrateVolume(context.Background(), v1, destinationHost())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "desthost:3261,1 iqn.prefix.v1 0", update.ProviderLocation)
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func TestMigrateVolumeCancelledDuringReplication(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nms := migrationSource().on("appliance.execute", func([]interface{}) (interface{}, error) {
		cancel()
		return nil, nmsFault("appliance.execute", "rrmgr: interrupted")
	})
	d := newTestDriver(nms)
	d.dialNMS = noDial(t)

	moved, _, err := d.MigrateVolume(ctx, v1, destinationHost())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, nms.count("snapshot.destroy"), "temporary snapshot is deleted after cancellation")
}

func TestMigrateVolumeCancelledAfterReplication(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	dest := NewMockClient(ctrl)
	dest.EXPECT().
		Call(gomock.Any(), "snapshot", "destroy", gomock.Any(), "").
		DoAndReturn(func(ctx context.Context, _, _ string, _ ...interface{}) (json.RawMessage, error) {
			assert.NoError(t, ctx.Err())
			return json.RawMessage("null"), nil
		})

	nms := migrationSource().on("appliance.execute", func([]interface{}) (interface{}, error) {
		cancel()
		return nil, nil
	})
	d := newTestDriver(nms)
	d.dialNMS = func(string) (Client, error) { return dest, nil }

	moved, update, err := d.MigrateVolume(ctx, v1, destinationHost())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "desthost:3261,1 iqn.prefix.v1 0", update.ProviderLocation)
	assert.Equal(t, 1, nms.count("snapshot.destroy"))
	assert.Equal(t, 1, nms.count("zvol.destroy"))
}

func TestReleaseDestinationSnapshotReusesConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	dest := NewMockClient(ctrl)
	dest.EXPECT().
		Call(gomock.Any(), "snapshot", "destroy", "dstpool/v1@snap", "").
		Return(json.RawMessage("null"), nil)

	d := newTestDriver(newFakeNMS())
	d.dialNMS = noDial(t)

	mc := &MigrationContext{
		Volume:   v1,
		Snapshot: storage.Snapshot{VolumeName: "v1", Name: "snap"},
		DestPool: "dstpool",
		DestURL:  "auto://desthost:2000/rest/nms/",
		Dest:     dest,
	}
	d.releaseDestinationSnapshot(context.Background(), mc)
}
