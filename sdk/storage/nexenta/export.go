package nexenta

import (
	"context"
	"strings"

	"github.com/djandroidboy/cinder/sdk/storage"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// exportStep is one stage of the export path. exists reports whether the
// resource is already in place; create provisions it. In ensure mode a create
// fault whose kind is in idempotent counts as success.
type exportStep struct {
	name       string
	exists     func(ctx context.Context) (bool, error)
	create     func(ctx context.Context) error
	idempotent []FaultKind
}

// ensureFaults are satisfied-state faults accepted by every step in ensure mode
var ensureFaults = []FaultKind{AlreadyExists, TargetOffline}

// CreateExport exports the volume as LUN 0 of its own target. Any fault aborts.
func (d *Driver) CreateExport(ctx context.Context, volume storage.Volume) (storage.ModelUpdate, error) {
	if err := d.export(ctx, volume, false); err != nil {
		return storage.ModelUpdate{}, err
	}
	return storage.ModelUpdate{ProviderLocation: d.providerLocation(volume)}, nil
}

// EnsureExport recreates whatever part of the export path is missing
func (d *Driver) EnsureExport(ctx context.Context, volume storage.Volume) error {
	return d.export(ctx, volume, true)
}

// RemoveExport deletes the LU, then the target group and the target. Only the
// LU deletion is fatal; the other two may already be gone.
func (d *Driver) RemoveExport(ctx context.Context, volume storage.Volume) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	t := d.ExportTarget(volume.Name)

	if _, err := nms.Call(ctx, "scsidisk", "delete_lu", t.ZvolName); err != nil {
		return err
	}
	if _, err := nms.Call(ctx, "stmf", "destroy_targetgroup", t.TargetGroupName); err != nil {
		klog.Warningf("Got error trying to destroy target group %s, assuming it is already gone: %v", t.TargetGroupName, err)
	}
	if _, err := nms.Call(ctx, "iscsitarget", "delete_target", t.TargetName); err != nil {
		klog.Warningf("Got error trying to delete target %s, assuming it is already gone: %v", t.TargetName, err)
	}
	return nil
}

func (d *Driver) export(ctx context.Context, volume storage.Volume, ensure bool) error {
	nms, err := d.client()
	if err != nil {
		return err
	}
	for _, step := range exportSteps(nms, d.ExportTarget(volume.Name)) {
		if err := runStep(ctx, step, ensure); err != nil {
			return err
		}
	}
	return nil
}

func runStep(ctx context.Context, step exportStep, ensure bool) error {
	present, err := step.exists(ctx)
	if err != nil {
		return err
	}
	if present {
		klog.V(4).Infof("Export step %q already satisfied, skipping", step.name)
		return nil
	}

	err = step.create(ctx)
	if err == nil {
		return nil
	}
	fault := Classify(err)
	if ensure && lo.Contains(step.idempotent, fault.Kind) {
		klog.Infof("Ignored %s error %q while ensuring export (%s)", step.name, fault.RawMessage, fault.Kind)
		return nil
	}
	return err
}

// exportSteps lists the export path of t in dependency order
func exportSteps(nms Client, t ExportTarget) []exportStep {
	busyToo := append([]FaultKind{Busy}, ensureFaults...)

	return []exportStep{
		{
			name: "target creation",
			exists: func(ctx context.Context) (bool, error) {
				return listContains(ctx, nms, "stmf", "list_targets", t.TargetName)
			},
			create: func(ctx context.Context) error {
				_, err := nms.Call(ctx, "iscsitarget", "create_target", map[string]string{"target_name": t.TargetName})
				return err
			},
			idempotent: ensureFaults,
		},
		{
			name: "target group creation",
			exists: func(ctx context.Context) (bool, error) {
				return listContains(ctx, nms, "stmf", "list_targetgroups", t.TargetGroupName)
			},
			create: func(ctx context.Context) error {
				_, err := nms.Call(ctx, "stmf", "create_targetgroup", t.TargetGroupName)
				return err
			},
			idempotent: ensureFaults,
		},
		{
			name: "target group member addition",
			exists: func(ctx context.Context) (bool, error) {
				return listContains(ctx, nms, "stmf", "list_targetgroup_members", t.TargetName, t.TargetGroupName)
			},
			create: func(ctx context.Context) error {
				_, err := nms.Call(ctx, "stmf", "add_targetgroup_member", t.TargetGroupName, t.TargetName)
				return err
			},
			idempotent: ensureFaults,
		},
		{
			name: "LU creation",
			exists: func(ctx context.Context) (bool, error) {
				return lookupFlag(ctx, nms, "does not exist", "scsidisk", "lu_exists", t.ZvolName)
			},
			create: func(ctx context.Context) error {
				_, err := nms.Call(ctx, "scsidisk", "create_lu", t.ZvolName, map[string]string{})
				return err
			},
			idempotent: busyToo,
		},
		{
			name: "LUN mapping entry addition",
			exists: func(ctx context.Context) (bool, error) {
				return lookupFlag(ctx, nms, "does not exist for zvol", "scsidisk", "lu_shared", t.ZvolName)
			},
			create: func(ctx context.Context) error {
				_, err := nms.Call(ctx, "scsidisk", "add_lun_mapping_entry", t.ZvolName, map[string]string{
					"target_group": t.TargetGroupName,
					"lun":          "0",
				})
				return err
			},
			idempotent: busyToo,
		},
	}
}

// listContains calls a listing method and looks for want in the result
func listContains(ctx context.Context, nms Client, object, method, want string, params ...interface{}) (bool, error) {
	raw, err := nms.Call(ctx, object, method, params...)
	if err != nil {
		return false, err
	}
	items, err := decodeStrings(raw)
	if err != nil {
		return false, err
	}
	return lo.Contains(items, want), nil
}

// lookupFlag calls a boolean query. A NotFound fault carrying absent means
// false; any other fault is returned.
func lookupFlag(ctx context.Context, nms Client, absent, object, method string, params ...interface{}) (bool, error) {
	raw, err := nms.Call(ctx, object, method, params...)
	if err != nil {
		if fault := Classify(err); fault.Kind == NotFound && strings.Contains(fault.RawMessage, absent) {
			return false, nil
		}
		return false, err
	}
	return decodeBool(raw)
}

func (d *Driver) providerLocation(volume storage.Volume) string {
	return providerLocation(d.opts.Host, d.opts.TargetPortalPort, d.targetName(volume.Name))
}
