package tvremote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Remote key command variants.
const (
	CmdClick   = "Click"
	CmdPress   = "Press"
	CmdRelease = "Release"
)

// KeyPowerOn is handled locally: it wakes the device and opens the connection.
const KeyPowerOn = "KEY_POWERON"

// KeyPowerOff switches the device back off after Open woke it for pairing.
const KeyPowerOff = "KEY_POWEROFF"

const keyVoice = "KEY_BT_VOICE"

// Remote is a stateful connection to one device.
type Remote struct {
	cfgMu sync.Mutex
	cfg   Config

	opts    options
	logger  *slog.Logger
	onError ErrorHandler
	prober  Prober
	power   Power

	// mu is the receive lock. It serializes Open, generic sends and
	// gesture runs against the shared transport.
	mu sync.Mutex

	connMu sync.Mutex
	conn   transport
	loop   *receiveLoop

	// closes counts Close calls, so a handshake can tell a caller's
	// Close from the device hanging up.
	closes atomic.Uint64

	registry *callbackRegistry
	pacer    *rate.Limiter
	mouse    *Mouse
}

// NewRemote creates a remote for the given configuration.
// The onError handler receives soft errors that cannot be returned to a
// caller (device off, event timeouts, undecodable frames).
// The remote is not connected until Open() is called.
func NewRemote(cfg Config, onError ErrorHandler, opts ...Option) (*Remote, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	if onError == nil {
		return nil, errors.New("ErrorHandler must not be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Remote{
		cfg:      resolved,
		opts:     o,
		logger:   o.logger.With(slog.String("host", resolved.Host)),
		onError:  onError,
		prober:   o.prober,
		power:    o.power,
		pacer:    rate.NewLimiter(rate.Every(o.sendInterval), 1),
	}
	r.registry = newCallbackRegistry(r.logger)
	if r.prober == nil {
		r.prober = NewHTTPProber()
	}
	if r.power == nil {
		r.power = newProbePower(r.prober, resolved.Host, resolved.MAC, o.powerOnTimeout, r.logger)
	}
	r.mouse = newMouse(r)
	return r, nil
}

// Config returns a copy of the current configuration, including any token
// obtained by pairing.
func (r *Remote) Config() Config {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	return r.cfg
}

// Connected reports whether a transport is open.
func (r *Remote) Connected() bool {
	return r.connection() != nil
}

// Mouse returns the gesture queue bound to this remote.
func (r *Remote) Mouse() *Mouse {
	return r.mouse
}

// Close tears down the connection and joins the receive loop. It does not
// take the receive lock, so it also aborts a pending authorization wait:
// Open then fails with ErrConnectionClosed without trying another endpoint.
func (r *Remote) Close() error {
	r.closes.Add(1)
	r.mouse.Stop()
	return r.closeConn()
}

// Send writes one {method, params} frame, reopening the connection first
// when none is open. Consecutive sends are paced to the device's rate limit.
func (r *Remote) Send(ctx context.Context, method string, params any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendLocked(ctx, method, params)
}

// Control sends a remote key. cmd is CmdClick, CmdPress or CmdRelease;
// empty means CmdClick. A switched-off device is reported to the
// ErrorHandler and is not an error.
func (r *Remote) Control(ctx context.Context, key, cmd string) error {
	if cmd == "" {
		cmd = CmdClick
	}

	if key == KeyPowerOn {
		if err := r.power.PowerOn(ctx); err != nil {
			return fmt.Errorf("power on: %w", err)
		}
		_, err := r.Open(ctx)
		return err
	}

	if !r.Connected() {
		if !r.power.PoweredOn(ctx) {
			r.report(SDKError{Kind: ErrDeviceOff, Cause: ErrNotConnected})
			return nil
		}
		opened, err := r.Open(ctx)
		if err != nil {
			return err
		}
		if !opened {
			return nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("sending control command", slog.String("key", key), slog.String("cmd", cmd))
	return r.sendLocked(ctx, MethodRemoteControl, keyParams{
		Cmd:          cmd,
		DataOfCmd:    key,
		Option:       "false",
		TypeOfRemote: "SendRemoteKey",
	})
}

// InputText types text into the focused input field on the device.
func (r *Remote) InputText(ctx context.Context, text string) error {
	return r.Send(ctx, MethodRemoteControl, keyParams{
		Cmd:          serializeString(text),
		DataOfCmd:    "base64",
		TypeOfRemote: "SendInputString",
	})
}

// StartVoiceRecognition holds the voice key and waits for the device to
// show its voice prompt.
func (r *Remote) StartVoiceRecognition(ctx context.Context) error {
	return r.voice(ctx, CmdPress, EventVoiceStandby)
}

// StopVoiceRecognition releases the voice key and waits for the prompt to hide.
func (r *Remote) StopVoiceRecognition(ctx context.Context) error {
	return r.voice(ctx, CmdRelease, EventVoiceHide)
}

func (r *Remote) voice(ctx context.Context, cmd, event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	sub := r.registry.register("event", event, func(*Message) { close(done) })
	defer r.registry.unregister(sub)

	r.logger.Info("sending control command", slog.String("key", keyVoice), slog.String("cmd", cmd))
	if err := r.sendLocked(ctx, MethodRemoteControl, keyParams{
		Cmd:          cmd,
		DataOfCmd:    keyVoice,
		Option:       "false",
		TypeOfRemote: "SendRemoteKey",
	}); err != nil {
		return err
	}

	if !waitSignal(ctx, done, r.opts.voiceTimeout) {
		r.report(SDKError{Kind: ErrDispatchTimeout, Event: event})
	}
	return nil
}

type keyParams struct {
	Cmd          string `json:"Cmd"`
	DataOfCmd    string `json:"DataOfCmd"`
	Option       string `json:"Option,omitempty"`
	TypeOfRemote string `json:"TypeOfRemote"`
}

// ensureLocked opens a connection when none exists. The caller holds r.mu.
func (r *Remote) ensureLocked(ctx context.Context) error {
	if r.connection() != nil {
		return nil
	}
	if !r.power.PoweredOn(ctx) {
		r.report(SDKError{Kind: ErrDeviceOff, Cause: ErrNotConnected})
		return ErrNotConnected
	}
	if _, err := r.openLocked(ctx); err != nil {
		return err
	}
	if r.connection() == nil {
		return ErrNotConnected
	}
	return nil
}

func (r *Remote) sendLocked(ctx context.Context, method string, params any) error {
	data, err := marshalFrame(method, params)
	if err != nil {
		return err
	}
	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}

	t := r.connection()
	if t == nil {
		return ErrConnectionClosed
	}
	if err := t.send(data); err != nil {
		_ = r.closeConn()
		return err
	}
	return nil
}

func (r *Remote) connection() transport {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.conn
}

// attach installs t as the current connection and starts its receive loop.
func (r *Remote) attach(t transport) (*receiveLoop, error) {
	loop := newReceiveLoop(t, r.registry)
	loop.onStop = r.detach
	loop.onParseError = func(data []byte, err error) {
		r.report(SDKError{Kind: ErrParseFailure, Cause: err, Raw: data})
	}

	r.connMu.Lock()
	if r.loop != nil && r.loop.current() != loopIdle {
		r.connMu.Unlock()
		return nil, ErrLoopRunning
	}
	r.conn = t
	r.loop = loop
	r.connMu.Unlock()

	if err := loop.start(); err != nil {
		return nil, err
	}
	return loop, nil
}

// detach forgets t if it is still the current connection.
func (r *Remote) detach(t transport, err error) {
	r.connMu.Lock()
	if r.conn == t {
		r.conn = nil
	}
	r.connMu.Unlock()

	if err != nil && !errors.Is(err, ErrClosed) {
		r.report(SDKError{Kind: ErrTransportRead, Cause: err})
	}
	r.logger.Info("websocket closed")
}

// closeConn closes the current transport and waits for its loop to finish.
// A loop that already stopped on its own is joined as well.
func (r *Remote) closeConn() error {
	r.connMu.Lock()
	t, loop := r.conn, r.loop
	r.connMu.Unlock()

	if t != nil {
		_ = t.close()
	}
	if loop != nil {
		return loop.wait(r.opts.loopJoinTimeout)
	}
	if t != nil {
		r.detach(t, nil)
	}
	return nil
}

func (r *Remote) report(e SDKError) {
	if e.Host == "" {
		e.Host = r.Config().Host
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	r.onError(e)
}

// waitSignal waits for ch to close. It reports false on timeout or
// cancellation.
func waitSignal(ctx context.Context, ch <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
