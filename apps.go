package tvremote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// ErrApplicationNotFound is returned by GetApplication when nothing matches.
var ErrApplicationNotFound = errors.New("application not found")

// Application is one entry of the device's application catalog.
type Application struct {
	ID      string
	Name    string
	AppType int
	// Fields holds every attribute the device reported, merged across the
	// catalog events.
	Fields map[string]any

	remote *Remote
}

// Launch asks the device to start the application.
func (a *Application) Launch(ctx context.Context) error {
	actionType := "NATIVE_LAUNCH"
	if a.AppType == 2 {
		actionType = "DEEP_LINK"
	}
	return a.remote.Send(ctx, MethodChannelEmit, emitParams{
		Event: EventAppLaunch,
		To:    "host",
		Data: map[string]any{
			"appId":       a.ID,
			"action_type": actionType,
		},
	})
}

type emitParams struct {
	Data  any    `json:"data"`
	Event string `json:"event"`
	To    string `json:"to"`
}

// Applications requests both catalog events and merges the answers. A
// catalog event that never arrives is reported and treated as empty.
func (r *Remote) Applications(ctx context.Context) ([]*Application, error) {
	type catalog struct {
		event   string
		done    chan struct{}
		records []map[string]any
		sub     *subscription
	}
	catalogs := []*catalog{
		{event: EventEdenApps, done: make(chan struct{})},
		{event: EventInstalledApps, done: make(chan struct{})},
	}

	r.mu.Lock()
	if err := r.ensureLocked(ctx); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	for _, c := range catalogs {
		c := c
		c.sub = r.registry.register("event", c.event, func(msg *Message) {
			var payload struct {
				Data []map[string]any `json:"data"`
			}
			if err := msg.UnmarshalData(&payload); err == nil {
				c.records = payload.Data
			}
			close(c.done)
		})
	}
	defer func() {
		for _, c := range catalogs {
			r.registry.unregister(c.sub)
		}
	}()

	for _, c := range catalogs {
		if err := r.sendLocked(ctx, MethodChannelEmit, emitParams{Data: "", Event: c.event, To: "host"}); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	r.mu.Unlock()

	results := make([][]map[string]any, len(catalogs))
	for i, c := range catalogs {
		if !waitSignal(ctx, c.done, r.opts.eventTimeout) {
			r.logger.Debug("catalog event timed out", slog.String("event", c.event))
			r.report(SDKError{Kind: ErrDispatchTimeout, Event: c.event})
			continue
		}
		results[i] = c.records
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := mergeApplications(results[0], results[1])
	apps := make([]*Application, 0, len(merged))
	for _, rec := range merged {
		apps = append(apps, newApplication(r, rec))
	}
	r.logger.Debug("applications returned", slog.Int("count", len(apps)))
	return apps, nil
}

// GetApplication returns the first application whose ID or name equals pattern.
func (r *Remote) GetApplication(ctx context.Context, pattern string) (*Application, error) {
	apps, err := r.Applications(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if app.ID == pattern || app.Name == pattern {
			return app, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrApplicationNotFound, pattern)
}

// mergeApplications combines records that share an appId, with installed
// attributes taking precedence, then appends the unmatched records of each
// list. Every input record appears in exactly one output record.
func mergeApplications(eden, installed []map[string]any) []map[string]any {
	used := make([]bool, len(installed))
	var merged, restEden []map[string]any

	for _, e := range eden {
		id, ok := appID(e)
		match := -1
		if ok {
			for j, in := range installed {
				if other, ok := appID(in); ok && !used[j] && other == id {
					match = j
					break
				}
			}
		}
		if match < 0 {
			restEden = append(restEden, e)
			continue
		}
		used[match] = true
		rec := maps.Clone(e)
		maps.Copy(rec, installed[match])
		merged = append(merged, rec)
	}

	merged = append(merged, restEden...)
	for j, in := range installed {
		if !used[j] {
			merged = append(merged, in)
		}
	}
	return merged
}

func appID(rec map[string]any) (string, bool) {
	v, ok := rec["appId"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func newApplication(r *Remote, rec map[string]any) *Application {
	app := &Application{Fields: rec, remote: r}
	app.ID, _ = appID(rec)
	if name, ok := rec["name"].(string); ok {
		app.Name = name
	}
	if t, ok := rec["app_type"].(float64); ok {
		app.AppType = int(t)
	}
	return app
}
