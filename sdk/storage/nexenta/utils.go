package nexenta

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/djandroidboy/cinder/sdk/storage"
	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// decodeBool accepts the appliance's boolean spellings: true/false, 0/1 and null
func decodeBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, errors.Wrapf(err, "cannot decode %q as bool", string(raw))
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float64:
		return t > 0, nil
	case string:
		return t != "" && t != "0" && t != "false", nil
	default:
		return false, errors.Errorf("unexpected result %s, want bool", string(raw))
	}
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q as list", string(raw))
	}
	return out, nil
}

// decodeProps decodes a property map; non-string values are rendered with %v
func decodeProps(raw json.RawMessage) (map[string]string, error) {
	props := map[string]string{}
	if len(raw) == 0 || string(raw) == "null" {
		return props, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q as properties", string(raw))
	}
	for k, v := range m {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			props[k] = s
			continue
		}
		props[k] = fmt.Sprint(v)
	}
	return props, nil
}

// decodeBindings returns the binding descriptions of appliance.ssh_list_bindings.
// The appliance answers with a map keyed by binding or, on older releases, a list.
func decodeBindings(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err == nil {
		return lo.Keys(m), nil
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q as ssh bindings", string(raw))
	}
	return lo.Map(list, func(item interface{}, _ int) string {
		return fmt.Sprint(item)
	}), nil
}

// str2GiB converts an appliance size such as "1.5T" or "512M" to GiB
func str2GiB(size string) (float64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, errors.New("empty size")
	}
	bytes, err := units.RAMInBytes(size)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", size)
	}
	return float64(bytes) / units.GiB, nil
}

// rrmgrCommand builds the zfs replication command; zero options are left out
func rrmgrCommand(src, dst string, compression, tcpBufSize, connections int) string {
	cmd := "rrmgr -s zfs"
	if compression > 0 {
		cmd += fmt.Sprintf(" -c %d", compression)
	}
	cmd += " -q -e"
	if tcpBufSize > 0 {
		cmd += fmt.Sprintf(" -w %d", tcpBufSize)
	}
	if connections > 0 {
		cmd += fmt.Sprintf(" -n %d", connections)
	}
	return fmt.Sprintf("%s %s %s", cmd, src, dst)
}

// migrateSnapshotName returns a fresh temporary snapshot name for migrating volume
func migrateSnapshotName(volume storage.Volume) string {
	return migrateSnapshotPrefix + volume.ID + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// splitOrigin parses a "<pool>/<volume>@<snapshot>" origin property
func splitOrigin(origin, pool string) (storage.Snapshot, bool) {
	zvol, snapshot, found := strings.Cut(origin, "@")
	if !found || zvol == "" || snapshot == "" {
		return storage.Snapshot{}, false
	}
	return storage.Snapshot{
		VolumeName: strings.TrimPrefix(zvol, pool+"/"),
		Name:       snapshot,
	}, true
}
