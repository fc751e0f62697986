package tvremote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMergeApplications(t *testing.T) {
	eden := []map[string]any{
		{"appId": "netflix", "name": "Netflix", "icon": "eden.png"},
		{"appId": "weather", "name": "Weather"},
		{"name": "no id"},
	}
	installed := []map[string]any{
		{"appId": "youtube", "name": "YouTube", "app_type": float64(2)},
		{"appId": "netflix", "name": "Netflix TV", "app_type": float64(4)},
	}

	got := mergeApplications(eden, installed)
	if len(got) != 4 {
		t.Fatalf("merged %d records, want 4: %v", len(got), got)
	}

	// Merged records first, with installed attributes winning.
	if got[0]["appId"] != "netflix" || got[0]["name"] != "Netflix TV" || got[0]["icon"] != "eden.png" {
		t.Errorf("merged record = %v", got[0])
	}
	if got[1]["appId"] != "weather" || got[2]["name"] != "no id" {
		t.Errorf("unmatched eden records = %v, %v", got[1], got[2])
	}
	if got[3]["appId"] != "youtube" {
		t.Errorf("unmatched installed record = %v", got[3])
	}

	// Inputs are not modified.
	if eden[0]["name"] != "Netflix" {
		t.Error("mergeApplications modified its input")
	}
}

func TestMergeApplications_Empty(t *testing.T) {
	if got := mergeApplications(nil, nil); len(got) != 0 {
		t.Errorf("merge of empty lists = %v", got)
	}
	only := []map[string]any{{"appId": "a"}}
	if got := mergeApplications(nil, only); len(got) != 1 {
		t.Errorf("merge with empty eden = %v", got)
	}
}

func TestNewApplication(t *testing.T) {
	app := newApplication(nil, map[string]any{"appId": "111299001912", "name": "YouTube", "app_type": float64(2)})
	if app.ID != "111299001912" || app.Name != "YouTube" || app.AppType != 2 {
		t.Errorf("app = %+v", app)
	}

	bare := newApplication(nil, map[string]any{"appId": float64(7)})
	if bare.ID != "7" || bare.Name != "" || bare.AppType != 0 {
		t.Errorf("app = %+v", bare)
	}
}

// catalogDevice answers both catalog requests unless the event is listed in skip.
func catalogDevice(skip ...string) *mockDevice {
	mock := grantingDevice("")
	mock.onFrame = func(d *mockDevice, data []byte) {
		s := string(data)
		for _, ev := range skip {
			if strings.Contains(s, ev) {
				return
			}
		}
		switch {
		case strings.Contains(s, EventEdenApps):
			d.sendEvent(EventEdenApps, map[string]any{"data": []any{
				map[string]any{"appId": "netflix", "name": "Netflix"},
				map[string]any{"appId": "weather", "name": "Weather"},
			}})
		case strings.Contains(s, EventInstalledApps):
			d.sendEvent(EventInstalledApps, map[string]any{"data": []any{
				map[string]any{"appId": "netflix", "name": "Netflix", "app_type": 2},
				map[string]any{"appId": "youtube", "name": "YouTube", "app_type": 4},
			}})
		}
	}
	return mock
}

func TestRemote_Applications(t *testing.T) {
	mock := catalogDevice()
	devices := &testDevices{plain: startServer(t, mock, false)}
	remote := newTestRemote(t, Config{Paired: true}, devices, nil)
	openRemote(t, remote)

	apps, err := remote.Applications(context.Background())
	if err != nil {
		t.Fatalf("Applications() error: %v", err)
	}
	var ids []string
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "netflix,weather,youtube" {
		t.Errorf("ids = %v, want [netflix weather youtube]", ids)
	}
	if apps[0].AppType != 2 {
		t.Errorf("netflix AppType = %d, want 2 from the installed list", apps[0].AppType)
	}
	if n := remote.registry.len(); n != 0 {
		t.Errorf("registry has %d entries, want 0", n)
	}

	frames := mock.receivedFrames(t)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	for _, f := range frames {
		if f.Method != MethodChannelEmit || f.Params["to"] != "host" {
			t.Errorf("catalog request = %+v", f)
		}
	}
}

func TestRemote_ApplicationsPartialTimeout(t *testing.T) {
	mock := catalogDevice(EventInstalledApps)
	devices := &testDevices{plain: startServer(t, mock, false)}
	rec := &errorRecorder{}
	remote := newTestRemote(t, Config{Paired: true}, devices, rec.handle, WithEventTimeout(100*time.Millisecond))
	openRemote(t, remote)

	apps, err := remote.Applications(context.Background())
	if err != nil {
		t.Fatalf("Applications() error: %v", err)
	}
	if len(apps) != 2 {
		t.Errorf("apps = %d, want the 2 eden entries", len(apps))
	}
	if !rec.has(ErrDispatchTimeout) {
		t.Errorf("reported kinds = %v, want ErrDispatchTimeout", rec.kinds())
	}
	if n := remote.registry.len(); n != 0 {
		t.Errorf("registry has %d entries after timeout, want 0", n)
	}
}

func TestRemote_GetApplicationAndLaunch(t *testing.T) {
	mock := catalogDevice()
	devices := &testDevices{plain: startServer(t, mock, false)}
	remote := newTestRemote(t, Config{Paired: true}, devices, nil)
	openRemote(t, remote)

	ctx := context.Background()
	if _, err := remote.GetApplication(ctx, "Missing"); !errors.Is(err, ErrApplicationNotFound) {
		t.Errorf("GetApplication(Missing) = %v, want ErrApplicationNotFound", err)
	}

	app, err := remote.GetApplication(ctx, "YouTube")
	if err != nil {
		t.Fatalf("GetApplication() error: %v", err)
	}
	if err := app.Launch(ctx); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	waitFor(t, "launch frame", func() bool { return len(mock.getReceived()) == 5 })
	launch := mock.receivedFrames(t)[4]
	if launch.Params["event"] != EventAppLaunch {
		t.Errorf("event = %v, want %s", launch.Params["event"], EventAppLaunch)
	}
	data, _ := launch.Params["data"].(map[string]any)
	if data["appId"] != "youtube" || data["action_type"] != "NATIVE_LAUNCH" {
		t.Errorf("launch data = %v", data)
	}
}
