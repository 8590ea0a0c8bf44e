package nexenta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/djandroidboy/cinder/sdk/storage"
	"k8s.io/klog/v2"
)

const (
	defaultNMSPath     = "/rest/nms/"
	defaultNMSPort     = 2000
	defaultNMSUser     = "admin"
	defaultNMSPassword = "nexenta"
)

//go:generate mockgen -source=jsonrpc.go -destination=mock_client.go -package=nexenta

// Client issues NMS remote procedure calls. A failed call returns a *Fault
// carrying the appliance's message.
type Client interface {
	Call(ctx context.Context, object, method string, params ...interface{}) (json.RawMessage, error)
	// URL returns the management URL without credentials
	URL() string
}

type nmsRequest struct {
	Object string        `json:"object"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type nmsResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// JSONProxy is the NMS JSON-RPC client
type JSONProxy struct {
	storage.BaseStorageProvider
	scheme   string
	host     string
	port     int
	path     string
	auto     bool
	upgraded bool
}

// NewJSONProxy builds a proxy for accessInfo. Protocol "auto" (or empty)
// starts on http and moves to https the first time http is refused.
func NewJSONProxy(accessInfo storage.StorageAccessInfo) *JSONProxy {
	scheme, auto := accessInfo.Protocol, false
	if scheme == "" || scheme == "auto" {
		scheme, auto = "http", true
	}
	path := accessInfo.Path
	if path == "" {
		path = defaultNMSPath
	}
	port := accessInfo.Port
	if port == 0 {
		port = defaultNMSPort
	}

	p := &JSONProxy{
		scheme: scheme,
		host:   accessInfo.Hostname,
		port:   port,
		path:   path,
		auto:   auto,
	}
	p.AccessInfo = accessInfo
	p.Username = accessInfo.Username
	p.Password = accessInfo.Password
	p.InitHTTPClient(accessInfo.SkipSSLVerification, accessInfo.Retries)
	p.BaseURL = p.endpoint()
	return p
}

// DialNMS connects to the appliance behind a management URL as produced by URL
func DialNMS(rawURL string, skipSSLVerify bool, retries int) (Client, error) {
	accessInfo, err := ParseNMSURL(rawURL)
	if err != nil {
		return nil, err
	}
	accessInfo.SkipSSLVerification = skipSSLVerify
	accessInfo.Retries = retries
	return NewJSONProxy(accessInfo), nil
}

func (p *JSONProxy) endpoint() string {
	return fmt.Sprintf("%s://%s:%d%s", p.scheme, p.host, p.port, p.path)
}

// URL returns the management URL. Auto-negotiating proxies report the
// "auto" scheme so that a client built from the URL negotiates too.
func (p *JSONProxy) URL() string {
	scheme := p.scheme
	if p.auto {
		scheme = "auto"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, p.host, p.port, p.path)
}

// Call invokes object.method with positional params
func (p *JSONProxy) Call(ctx context.Context, object, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := nmsRequest{Object: object, Method: method, Params: params}
	klog.V(4).Infof("Sending JSON data to %s: %s.%s %v", p.BaseURL, object, method, params)

	var resp nmsResponse
	err := p.DoRequestJSON(ctx, http.MethodPost, "", req, &resp)
	if err != nil && p.auto && !p.upgraded && shouldUpgrade(err) {
		klog.Infof("NMS at %s refused %s, switching to https: %v", p.host, p.scheme, err)
		p.scheme = "https"
		p.upgraded = true
		p.BaseURL = p.endpoint()
		resp = nmsResponse{}
		err = p.DoRequestJSON(ctx, http.MethodPost, "", req, &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("NMS %s.%s: %w", object, method, err)
	}

	if resp.Error != nil {
		fault := &Fault{Object: object, Method: method, Message: resp.Error.Message}
		klog.V(4).Infof("NMS fault: %s", fault)
		return nil, fault
	}
	klog.V(4).Infof("Got response: %s", string(resp.Result))
	return resp.Result, nil
}

// shouldUpgrade reports whether err means the http endpoint is not serving
// NMS: a redirect or no response at all.
func shouldUpgrade(err error) bool {
	var statusErr *storage.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 300 && statusErr.StatusCode < 400
	}
	var transportErr *storage.TransportError
	return errors.As(err, &transportErr)
}

// ParseNMSURL parses "<scheme>://[user[:password]@]host[:port][/path]".
// Scheme "auto" means http with https fallback. Missing credentials and port
// fall back to the appliance defaults; the path is always the NMS endpoint.
func ParseNMSURL(rawURL string) (storage.StorageAccessInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return storage.StorageAccessInfo{}, fmt.Errorf("invalid NMS url %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return storage.StorageAccessInfo{}, fmt.Errorf("invalid NMS url %q: missing host", rawURL)
	}

	info := storage.StorageAccessInfo{
		Hostname: u.Hostname(),
		Port:     defaultNMSPort,
		Protocol: u.Scheme,
		Path:     defaultNMSPath,
		Username: defaultNMSUser,
		Password: defaultNMSPassword,
	}
	if info.Protocol == "" {
		info.Protocol = "auto"
	}
	if u.User != nil {
		info.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			info.Password = password
		}
	}
	if port := u.Port(); port != "" {
		info.Port, err = strconv.Atoi(port)
		if err != nil {
			return storage.StorageAccessInfo{}, fmt.Errorf("invalid NMS url %q: bad port: %w", rawURL, err)
		}
	}
	return info, nil
}
