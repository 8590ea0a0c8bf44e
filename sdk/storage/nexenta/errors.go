package nexenta

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceInUse is matched by errors for resources that still have dependents
	ErrResourceInUse = errors.New("resource is in use")
	// ErrNotFound is matched by errors for resources that must exist but do not
	ErrNotFound = errors.New("resource not found")
)

// Fault is a failed NMS call. Message is the appliance's literal text.
type Fault struct {
	Object  string
	Method  string
	Message string
}

func (f *Fault) Error() string {
	if f.Object == "" {
		return f.Message
	}
	return fmt.Sprintf("NMS %s.%s failed: %s", f.Object, f.Method, f.Message)
}

// VolumeIsBusyError is returned when a zvol cannot be destroyed because clones depend on it
type VolumeIsBusyError struct {
	VolumeName string
}

func (e *VolumeIsBusyError) Error() string {
	return fmt.Sprintf("volume %s is busy: it has dependent clones or snapshots", e.VolumeName)
}

func (e *VolumeIsBusyError) Is(target error) bool {
	return target == ErrResourceInUse
}

// SnapshotIsBusyError is returned when a snapshot cannot be destroyed because volumes were cloned from it
type SnapshotIsBusyError struct {
	SnapshotName string
}

func (e *SnapshotIsBusyError) Error() string {
	return fmt.Sprintf("snapshot %s is busy: it has dependent volumes", e.SnapshotName)
}

func (e *SnapshotIsBusyError) Is(target error) bool {
	return target == ErrResourceInUse
}

// PoolNotFoundError is returned by setup checks when the configured pool is missing
type PoolNotFoundError struct {
	Pool string
}

func (e *PoolNotFoundError) Error() string {
	return fmt.Sprintf("volume %s does not exist in Nexenta SA", e.Pool)
}

func (e *PoolNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
