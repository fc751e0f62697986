package tvremote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type authOutcome int

const (
	authNotOpened authOutcome = iota
	authGranted
	authDenied
	authTimeout
)

// Open connects to the device and waits for it to authorize the session.
// It reports false with a nil error when a paired device could not be
// reached, since it is most likely switched off.
//
// The plaintext endpoint is tried first unless the device is known to
// require token authentication; a denial, or a first-pairing timeout, on
// plaintext falls back to the encrypted endpoint once.
func (r *Remote) Open(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(ctx)
}

func (r *Remote) openLocked(ctx context.Context) (bool, error) {
	cfg := r.Config()

	// An unpaired device is woken for the pairing prompt and switched back
	// off once access is granted.
	woke := false
	if !cfg.Paired && !r.power.PoweredOn(ctx) {
		if err := r.power.PowerOn(ctx); err != nil {
			r.logger.Debug("power on failed", slog.Any("error", err))
		}
		if !r.power.PoweredOn(ctx) {
			return false, ErrDeviceUnreachable
		}
		woke = true
	}

	candidates := r.transportCandidates(ctx, cfg)
	for i, secure := range candidates {
		hasFallback := i < len(candidates)-1

		outcome, err := r.handshake(ctx, secure)
		if err != nil {
			return false, err
		}

		switch outcome {
		case authNotOpened:
			return false, nil
		case authGranted:
			r.logger.Debug("access granted", slog.Bool("secure", secure))
			if woke {
				r.powerOffLocked(ctx)
			}
			return true, nil
		case authDenied:
			if !secure && hasFallback {
				r.logger.Debug("plaintext connection denied, trying encrypted connection")
				continue
			}
			if err := r.closeConn(); err != nil {
				return false, err
			}
			return false, ErrAuthDenied
		case authTimeout:
			if !r.Config().Paired && !secure && hasFallback {
				r.logger.Debug("authorization timed out, trying encrypted connection")
				continue
			}
			if err := r.closeConn(); err != nil {
				return false, err
			}
			return false, ErrAuthFailure
		}
	}
	return false, ErrAuthFailure
}

// powerOffLocked switches off a device that Open woke. Failure only
// leaves the device on, so it is logged and not returned.
func (r *Remote) powerOffLocked(ctx context.Context) {
	var err error
	if p, ok := r.power.(PowerOffer); ok {
		err = p.PowerOff(ctx)
	} else {
		r.logger.Info("sending control command", slog.String("key", KeyPowerOff), slog.String("cmd", CmdClick))
		err = r.sendLocked(ctx, MethodRemoteControl, keyParams{
			Cmd:          CmdClick,
			DataOfCmd:    KeyPowerOff,
			Option:       "false",
			TypeOfRemote: "SendRemoteKey",
		})
	}
	if err != nil {
		r.logger.Debug("power off after pairing failed", slog.Any("error", err))
	}
}

// transportCandidates lists the endpoints to try in order. The list bounds
// the fallback to a single plaintext to encrypted step.
func (r *Remote) transportCandidates(ctx context.Context, cfg Config) []bool {
	if cfg.Port == SecurePort {
		return []bool{true}
	}

	info, err := r.prober.Probe(ctx, cfg.Host)
	if err != nil {
		r.report(SDKError{Kind: ErrProbeFailure, Cause: err})
	}
	if info.TokenAuth == TriTrue {
		return []bool{true}
	}
	return []bool{false, true}
}

// handshake opens one endpoint and waits for the authorization event.
func (r *Remote) handshake(ctx context.Context, secure bool) (authOutcome, error) {
	closes := r.closes.Load()
	if err := r.closeConn(); err != nil {
		return authNotOpened, err
	}

	r.cfgMu.Lock()
	if secure {
		r.cfg.Port = SecurePort
	} else {
		r.cfg.Port = PlainPort
	}
	cfg := r.cfg
	r.cfgMu.Unlock()

	ep := Endpoint{
		Host:   cfg.Host,
		Port:   cfg.Port,
		Secure: secure,
		Name:   cfg.Name,
		Token:  cfg.Token,
	}
	if cfg.Token != "" && secure {
		r.logger.Debug("using saved token")
	}

	t, err := r.opts.dial(ctx, ep)
	if err != nil {
		if !cfg.Paired {
			if errors.Is(err, ErrConnectFailure) {
				return authNotOpened, err
			}
			return authNotOpened, fmt.Errorf("%w: %w", ErrConnectFailure, err)
		}
		r.logger.Info("device did not answer, is it on?", slog.Any("error", err))
		r.report(SDKError{Kind: ErrDeviceOff, Cause: err})
		return authNotOpened, nil
	}

	result := make(chan authOutcome, 1)
	signal := func(o authOutcome) {
		select {
		case result <- o:
		default:
		}
	}

	var granted, denied *subscription
	granted = r.registry.register("event", EventChannelConnect, func(msg *Message) {
		r.registry.unregister(denied)
		r.authorize(msg)
		signal(authGranted)
	})
	denied = r.registry.register("event", EventChannelUnauthorized, func(*Message) {
		r.registry.unregister(granted)
		signal(authDenied)
	})

	loop, err := r.attach(t)
	if err != nil {
		r.registry.unregister(granted)
		r.registry.unregister(denied)
		_ = t.close()
		return authNotOpened, err
	}
	// Close ran before the transport was attached.
	if r.closes.Load() != closes {
		r.registry.unregister(granted)
		r.registry.unregister(denied)
		_ = r.closeConn()
		return authNotOpened, ErrConnectionClosed
	}

	timeout := r.opts.unpairedAuthTimeout
	if cfg.Paired {
		timeout = r.opts.pairedAuthTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-result:
		return o, nil
	case <-loop.done:
		// A verdict may still have been dispatched just before the read
		// failed.
		select {
		case o := <-result:
			return o, nil
		default:
		}
		if r.closes.Load() != closes {
			return authNotOpened, ErrConnectionClosed
		}
		return authTimeout, nil
	case <-timer.C:
		r.registry.unregister(granted)
		r.registry.unregister(denied)
		select {
		case o := <-result:
			return o, nil
		default:
		}
		return authTimeout, nil
	case <-ctx.Done():
		r.registry.unregister(granted)
		r.registry.unregister(denied)
		_ = r.closeConn()
		return authNotOpened, ctx.Err()
	}
}

// authorize records a granted session and persists it when a persistence
// target is configured.
func (r *Remote) authorize(msg *Message) {
	var data struct {
		Token string `json:"token"`
	}
	_ = msg.UnmarshalData(&data)

	r.cfgMu.Lock()
	if data.Token != "" {
		r.cfg.Token = data.Token
	}
	r.cfg.Paired = true
	cfg := r.cfg
	r.cfgMu.Unlock()

	if data.Token != "" {
		r.logger.Debug("new token received")
	}

	if cfg.Path == "" || cfg.Save == nil {
		return
	}
	if err := cfg.Save(cfg); err != nil {
		r.report(SDKError{Kind: ErrPersistFailure, Event: EventChannelConnect, Cause: err})
	}
}
