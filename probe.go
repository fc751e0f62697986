package tvremote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TriState is a yes/no answer that may be unknown.
type TriState int

const (
	TriUnknown TriState = iota
	TriFalse
	TriTrue
)

func (t TriState) String() string {
	switch t {
	case TriFalse:
		return "false"
	case TriTrue:
		return "true"
	}
	return "unknown"
}

// DeviceInfo is what the capability probe learned about a device.
type DeviceInfo struct {
	TokenAuth  TriState
	PowerState string // "on", "standby", or "" when not reported
	Name       string
	ModelName  string
	WifiMac    string
}

// Prober asks a device for its capabilities.
type Prober interface {
	Probe(ctx context.Context, host string) (DeviceInfo, error)
}

// HTTPProber queries the device's REST endpoint on the plaintext port.
type HTTPProber struct {
	Client *http.Client
	Port   int
}

// NewHTTPProber returns a prober with a 3 second timeout on port 8001.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{Timeout: 3 * time.Second},
		Port:   PlainPort,
	}
}

// Probe fetches /api/v2/. Transport errors leave TokenAuth unknown and are
// returned; a body that cannot be decoded means token auth is unsupported.
func (p *HTTPProber) Probe(ctx context.Context, host string) (DeviceInfo, error) {
	u := fmt.Sprintf("http://%s/api/v2/", net.JoinHostPort(host, strconv.Itoa(p.Port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("probe %s: %w", host, err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("probe %s: %w", host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("probe %s: read body: %w", host, err)
	}
	return parseDeviceInfo(body), nil
}

func parseDeviceInfo(body []byte) DeviceInfo {
	var doc struct {
		Device struct {
			TokenAuthSupport json.RawMessage `json:"TokenAuthSupport"`
			PowerState       string          `json:"PowerState"`
			Name             string          `json:"name"`
			ModelName        string          `json:"modelName"`
			WifiMac          string          `json:"wifiMac"`
		} `json:"device"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return DeviceInfo{TokenAuth: TriFalse}
	}

	info := DeviceInfo{
		TokenAuth:  TriFalse,
		PowerState: strings.ToLower(doc.Device.PowerState),
		Name:       doc.Device.Name,
		ModelName:  doc.Device.ModelName,
		WifiMac:    doc.Device.WifiMac,
	}

	// Firmware reports the flag either as a bool or as "true"/"false".
	var b bool
	var s string
	switch {
	case json.Unmarshal(doc.Device.TokenAuthSupport, &b) == nil:
		if b {
			info.TokenAuth = TriTrue
		}
	case json.Unmarshal(doc.Device.TokenAuthSupport, &s) == nil:
		if strings.EqualFold(s, "true") {
			info.TokenAuth = TriTrue
		}
	}
	return info
}
