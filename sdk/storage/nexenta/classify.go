package nexenta

import (
	"errors"
	"strings"
)

// FaultKind is the semantic outcome of a failed NMS call
type FaultKind int

const (
	Unknown FaultKind = iota
	NotFound
	AlreadyExists
	TargetOffline
	Busy
)

func (k FaultKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case TargetOffline:
		return "TargetOffline"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// ClassifiedFault pairs a fault kind with the appliance message it came from
type ClassifiedFault struct {
	Kind       FaultKind
	RawMessage string
}

type faultRule struct {
	substring string
	kind      FaultKind
}

// faultRules mirrors the appliance's message set. Order matters: the first
// rule whose substring occurs in the message wins. Matching is case-sensitive.
var faultRules = []faultRule{
	{"does not exist", NotFound},
	{"already configured", AlreadyExists},
	{"already exists", AlreadyExists},
	{"target must be offline", TargetOffline},
	{"has children", Busy},
	{"in use", Busy},
	{"view entry exists", Busy},
	{"dependent clones", Busy},
}

// ClassifyMessage maps a raw appliance message to a fault kind
func ClassifyMessage(message string) FaultKind {
	for _, rule := range faultRules {
		if strings.Contains(message, rule.substring) {
			return rule.kind
		}
	}
	return Unknown
}

// Classify inspects err for an NMS fault. Errors that did not come from the
// appliance (transport, decoding) are Unknown.
func Classify(err error) ClassifiedFault {
	if err == nil {
		return ClassifiedFault{Kind: Unknown}
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		return ClassifiedFault{Kind: Unknown, RawMessage: err.Error()}
	}
	return ClassifiedFault{Kind: ClassifyMessage(fault.Message), RawMessage: fault.Message}
}

// IsKind reports whether err is an NMS fault of the given kind
func IsKind(err error, kind FaultKind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == kind
}
