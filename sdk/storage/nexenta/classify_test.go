package nexenta

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Messages as returned by NexentaStor 3.x/4.x appliances
func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		message string
		want    FaultKind
	}{
		{"Zvol 'cinder/volume-1' does not exist", NotFound},
		{"LU for zvol cinder/volume-1 does not exist for zvol", NotFound},
		{"Snapshot cinder/volume-1@snap does not exist", NotFound},
		{"Target iqn.1986-03.com.sun:02:cinder-volume-1 already configured", AlreadyExists},
		{"Target group cinder/volume-1 already exists", AlreadyExists},
		{"Member already exists in target group", AlreadyExists},
		{"stmfadm: iqn.1986-03.com.sun:02:cinder-volume-1: target must be offline", TargetOffline},
		{"cannot destroy 'cinder/volume-1': zvol has children", Busy},
		{"zvol cinder/volume-1 is in use", Busy},
		{"stmfadm: view entry exists", Busy},
		{"snapshot has dependent clones", Busy},
		{"Unable to connect to appliance", Unknown},
		{"", Unknown},
		// case-sensitive
		{"Zvol DOES NOT EXIST", Unknown},
		{"Already Exists", Unknown},
		// first rule wins
		{"target group does not exist, already exists", NotFound},
		{"already exists but target must be offline", AlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.message))
		})
	}
}

func TestClassify(t *testing.T) {
	fault := &Fault{Object: "zvol", Method: "destroy", Message: "zvol has children"}

	assert.Equal(t, ClassifiedFault{Kind: Busy, RawMessage: "zvol has children"}, Classify(fault))
	assert.Equal(t, Busy, Classify(fmt.Errorf("delete volume: %w", fault)).Kind)

	// errors from outside the appliance are never classified by their text
	transport := errors.New("dial tcp: connection refused, target already exists")
	assert.Equal(t, ClassifiedFault{Kind: Unknown, RawMessage: transport.Error()}, Classify(transport))
	assert.Equal(t, Unknown, Classify(nil).Kind)
}

func TestIsKind(t *testing.T) {
	notFound := &Fault{Message: "Zvol 'cinder/v' does not exist"}

	assert.True(t, IsKind(notFound, NotFound))
	assert.False(t, IsKind(notFound, Busy))
	assert.False(t, IsKind(nil, NotFound))
	assert.False(t, IsKind(nil, Unknown))
}

func TestFaultKindString(t *testing.T) {
	assert.Equal(t, "NotFound", NotFound.String())
	assert.Equal(t, "AlreadyExists", AlreadyExists.String())
	assert.Equal(t, "TargetOffline", TargetOffline.String())
	assert.Equal(t, "Busy", Busy.String())
	assert.Equal(t, "Unknown", FaultKind(42).String())
}

func TestFaultError(t *testing.T) {
	assert.Equal(t, "NMS zvol.destroy failed: boom", (&Fault{Object: "zvol", Method: "destroy", Message: "boom"}).Error())
	assert.Equal(t, "boom", (&Fault{Message: "boom"}).Error())
	assert.True(t, errors.Is(&PoolNotFoundError{Pool: "cinder"}, ErrNotFound))
	assert.EqualError(t, &PoolNotFoundError{Pool: "cinder"}, "volume cinder does not exist in Nexenta SA")
}
