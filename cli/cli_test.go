package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	storage.VolumeDriver

	created  []storage.Volume
	ensured  []storage.Volume
	snapshot []storage.Snapshot
	migrated []storage.Host
	moved    bool
}

func (s *stubDriver) WhoAmI() string { return "stub" }

func (s *stubDriver) CreateVolume(ctx context.Context, volume storage.Volume) (storage.ModelUpdate, error) {
	s.created = append(s.created, volume)
	return storage.ModelUpdate{ProviderLocation: "host1:3260,1 iqn." + volume.Name + " 0"}, nil
}

func (s *stubDriver) EnsureExport(ctx context.Context, volume storage.Volume) error {
	s.ensured = append(s.ensured, volume)
	return nil
}

func (s *stubDriver) CreateSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	s.snapshot = append(s.snapshot, snapshot)
	return nil
}

func (s *stubDriver) MigrateVolume(ctx context.Context, volume storage.Volume, host storage.Host) (bool, storage.ModelUpdate, error) {
	s.migrated = append(s.migrated, host)
	if !s.moved {
		return false, storage.ModelUpdate{}, nil
	}
	return true, storage.ModelUpdate{ProviderLocation: "desthost:3260,1 iqn." + volume.Name + " 0"}, nil
}

func runWithStub(t *testing.T, stub *stubDriver, args ...string) (string, error) {
	t.Helper()
	orig := newVolumeDriver
	newVolumeDriver = func(ctx context.Context) (storage.VolumeDriver, error) { return stub, nil }
	t.Cleanup(func() { newVolumeDriver = orig })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"WARNING", logrus.WarnLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"trace", logrus.TraceLevel, false},
		{"verbose", logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestDestinationHost(t *testing.T) {
	host := destinationHost("desthost", "dstpool", 3261, "", 100)
	assert.Equal(t, "desthost", host.Name)
	assert.Equal(t, &storage.Capabilities{
		VendorName:            "Nexenta",
		LocationInfo:          "NexentaISCSIDriver:desthost:dstpool",
		ISCSITargetPortalPort: 3261,
		FreeCapacityGB:        100,
		ManagementURL:         "auto://desthost:2000/rest/nms/",
	}, host.Capabilities)

	host = destinationHost("desthost", "dstpool", 3260, "https://admin:pw@desthost:8457", 1)
	assert.Equal(t, "https://admin:pw@desthost:8457", host.Capabilities.ManagementURL)
}

func TestFillManagementURL(t *testing.T) {
	host := storage.Host{Capabilities: &storage.Capabilities{LocationInfo: "NexentaISCSIDriver:nms2:tank"}}
	fillManagementURL(&host)
	assert.Equal(t, "auto://nms2:2000/rest/nms/", host.Capabilities.ManagementURL)

	host = storage.Host{Capabilities: &storage.Capabilities{LocationInfo: "LVMVolumeDriver:lvm", ManagementURL: ""}}
	fillManagementURL(&host)
	assert.Empty(t, host.Capabilities.ManagementURL)

	host = storage.Host{Capabilities: &storage.Capabilities{LocationInfo: "NexentaISCSIDriver:nms2:tank", ManagementURL: "http://x"}}
	fillManagementURL(&host)
	assert.Equal(t, "http://x", host.Capabilities.ManagementURL)

	fillManagementURL(&storage.Host{})
}

func TestVolumeFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("name", "", "")
		cmd.Flags().String("id", "", "")
		cmd.Flags().Int64("size", 0, "")
		return cmd
	}

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--id", "42", "--size", "3"}))
	volume, err := volumeFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, storage.Volume{ID: "42", Name: "volume-42", Size: 3}, volume)

	cmd = newCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--name", "v1", "--id", "42"}))
	volume, err = volumeFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "v1", volume.Name)

	_, err = volumeFromFlags(newCmd())
	assert.EqualError(t, err, "--name or --id is required")
}

func TestVolumeCreateCommand(t *testing.T) {
	stub := &stubDriver{}
	out, err := runWithStub(t, stub, "volume", "create", "--name", "v1", "--size", "5")
	require.NoError(t, err)
	assert.Equal(t, "host1:3260,1 iqn.v1 0\n", out)
	assert.Equal(t, []storage.Volume{{Name: "v1", Size: 5}}, stub.created)
}

func TestExportEnsureCommand(t *testing.T) {
	stub := &stubDriver{}
	_, err := runWithStub(t, stub, "export", "ensure", "--name", "v2")
	require.NoError(t, err)
	assert.Equal(t, []storage.Volume{{Name: "v2"}}, stub.ensured)
}

func TestSnapshotCreateCommand(t *testing.T) {
	stub := &stubDriver{}
	_, err := runWithStub(t, stub, "snapshot", "create", "--volume", "v1", "--name", "s1")
	require.NoError(t, err)
	assert.Equal(t, []storage.Snapshot{{VolumeName: "v1", Name: "s1"}}, stub.snapshot)
}

func TestMigrateCommand(t *testing.T) {
	t.Run("moved", func(t *testing.T) {
		stub := &stubDriver{moved: true}
		out, err := runWithStub(t, stub, "migrate", "--name", "v1", "--size", "10",
			"--dest-host", "desthost", "--dest-pool", "dstpool", "--dest-port", "3260", "--dest-url", "")
		require.NoError(t, err)
		assert.Equal(t, "desthost:3260,1 iqn.v1 0\n", out)
		require.Len(t, stub.migrated, 1)
		assert.Equal(t, destinationHost("desthost", "dstpool", 3260, "", 10), stub.migrated[0])
	})

	t.Run("not moved", func(t *testing.T) {
		stub := &stubDriver{}
		out, err := runWithStub(t, stub, "migrate", "--name", "v1", "--size", "10",
			"--dest-host", "desthost", "--dest-pool", "dstpool", "--dest-port", "3260", "--dest-url", "")
		require.NoError(t, err)
		assert.Equal(t, "volume was not migrated\n", out)
	})
}
