package nexenta

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/samber/lo"
)

type nmsHandler func(params []interface{}) (interface{}, error)

type fakeCall struct {
	key    string
	params []interface{}
}

// fakeNMS is an in-memory NMS. Calls without a handler succeed with a null
// result. Calls on a done context never reach it and are not recorded.
type fakeNMS struct {
	mu       sync.Mutex
	handlers map[string]nmsHandler
	calls    []fakeCall
	url      string
}

func newFakeNMS() *fakeNMS {
	return &fakeNMS{
		handlers: map[string]nmsHandler{},
		url:      "auto://nms.local:2000/rest/nms/",
	}
}

func (f *fakeNMS) Call(ctx context.Context, object, method string, params ...interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := object + "." + method
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{key: key, params: params})
	h, ok := f.handlers[key]
	f.mu.Unlock()

	if !ok {
		return json.RawMessage("null"), nil
	}
	result, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (f *fakeNMS) URL() string {
	return f.url
}

func (f *fakeNMS) on(key string, h nmsHandler) *fakeNMS {
	f.handlers[key] = h
	return f
}

func (f *fakeNMS) returns(key string, result interface{}) *fakeNMS {
	return f.on(key, func([]interface{}) (interface{}, error) { return result, nil })
}

func (f *fakeNMS) fails(key, message string) *fakeNMS {
	return f.on(key, func([]interface{}) (interface{}, error) { return nil, nmsFault(key, message) })
}

func (f *fakeNMS) count(key string) int {
	return len(f.callsTo(key))
}

func (f *fakeNMS) callsTo(key string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]interface{}
	for _, c := range f.calls {
		if c.key == key {
			out = append(out, c.params)
		}
	}
	return out
}

func (f *fakeNMS) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Map(f.calls, func(c fakeCall, _ int) string { return c.key })
}

func (f *fakeNMS) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func nmsFault(key, message string) error {
	object, method, _ := strings.Cut(key, ".")
	return &Fault{Object: object, Method: method, Message: message}
}

// exportState models the appliance objects touched by the export path
type exportState struct {
	targets  []string
	groups   []string
	members  map[string][]string
	lus      map[string]bool
	mappings map[string]string
}

func newExportState() *exportState {
	return &exportState{
		members:  map[string][]string{},
		lus:      map[string]bool{},
		mappings: map[string]string{},
	}
}

// withExportState wires the export methods of f to s
func (f *fakeNMS) withExportState(s *exportState) *fakeNMS {
	f.on("stmf.list_targets", func([]interface{}) (interface{}, error) {
		return s.targets, nil
	})
	f.on("iscsitarget.create_target", func(p []interface{}) (interface{}, error) {
		name := p[0].(map[string]string)["target_name"]
		if lo.Contains(s.targets, name) {
			return nil, nmsFault("iscsitarget.create_target", "Target "+name+" already configured")
		}
		s.targets = append(s.targets, name)
		return nil, nil
	})
	f.on("stmf.list_targetgroups", func([]interface{}) (interface{}, error) {
		return s.groups, nil
	})
	f.on("stmf.create_targetgroup", func(p []interface{}) (interface{}, error) {
		s.groups = append(s.groups, p[0].(string))
		return nil, nil
	})
	f.on("stmf.list_targetgroup_members", func(p []interface{}) (interface{}, error) {
		return s.members[p[0].(string)], nil
	})
	f.on("stmf.add_targetgroup_member", func(p []interface{}) (interface{}, error) {
		group := p[0].(string)
		s.members[group] = append(s.members[group], p[1].(string))
		return nil, nil
	})
	f.on("scsidisk.lu_exists", func(p []interface{}) (interface{}, error) {
		return s.lus[p[0].(string)], nil
	})
	f.on("scsidisk.create_lu", func(p []interface{}) (interface{}, error) {
		s.lus[p[0].(string)] = true
		return nil, nil
	})
	f.on("scsidisk.lu_shared", func(p []interface{}) (interface{}, error) {
		zvol := p[0].(string)
		if !s.lus[zvol] {
			return nil, nmsFault("scsidisk.lu_shared", "LU does not exist for zvol "+zvol)
		}
		if _, ok := s.mappings[zvol]; ok {
			return 1, nil
		}
		return 0, nil
	})
	f.on("scsidisk.add_lun_mapping_entry", func(p []interface{}) (interface{}, error) {
		s.mappings[p[0].(string)] = p[1].(map[string]string)["target_group"]
		return nil, nil
	})
	return f
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Host = "host1"
	opts.TargetPortalPort = 3260
	opts.Pool = "pool"
	opts.TargetPrefix = "iqn.prefix."
	opts.TargetGroupPrefix = "tg/"
	return opts
}

func newTestDriver(nms Client) *Driver {
	return New(testOptions(), nms)
}

var exportCreateKeys = []string{
	"iscsitarget.create_target",
	"stmf.create_targetgroup",
	"stmf.add_targetgroup_member",
	"scsidisk.create_lu",
	"scsidisk.add_lun_mapping_entry",
}
