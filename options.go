package tvremote

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a Remote.
type Option func(*options)

type options struct {
	logger *slog.Logger
	prober Prober
	power  Power
	dial   dialer

	pairedAuthTimeout   time.Duration
	unpairedAuthTimeout time.Duration
	gestureAckTimeout   time.Duration
	sendInterval        time.Duration
	eventTimeout        time.Duration
	voiceTimeout        time.Duration
	powerOnTimeout      time.Duration
	loopJoinTimeout     time.Duration
}

func defaultOptions() options {
	return options{
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		dial:                dialWebsocket,
		pairedAuthTimeout:   5 * time.Second,
		unpairedAuthTimeout: 30 * time.Second,
		gestureAckTimeout:   time.Second,
		sendInterval:        200 * time.Millisecond,
		eventTimeout:        10 * time.Second,
		voiceTimeout:        2 * time.Second,
		powerOnTimeout:      15 * time.Second,
		loopJoinTimeout:     3 * time.Second,
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProber replaces the HTTP capability probe.
func WithProber(p Prober) Option {
	return func(o *options) {
		o.prober = p
	}
}

// WithPower replaces the default probe-based power detection.
func WithPower(p Power) Option {
	return func(o *options) {
		o.power = p
	}
}

// WithAuthTimeouts sets how long Open waits for the device to authorize
// the connection, for paired and first-time pairing respectively.
func WithAuthTimeouts(paired, unpaired time.Duration) Option {
	return func(o *options) {
		o.pairedAuthTimeout = paired
		o.unpairedAuthTimeout = unpaired
	}
}

// WithGestureAckTimeout sets the per-command budget a gesture run waits
// for the device acknowledgements.
func WithGestureAckTimeout(d time.Duration) Option {
	return func(o *options) {
		o.gestureAckTimeout = d
	}
}

// WithSendInterval sets the minimum spacing between generic commands.
func WithSendInterval(d time.Duration) Option {
	return func(o *options) {
		o.sendInterval = d
	}
}

// WithEventTimeout sets how long Applications waits for each catalog event.
func WithEventTimeout(d time.Duration) Option {
	return func(o *options) {
		o.eventTimeout = d
	}
}

// WithPowerOnTimeout bounds how long a power-on attempt polls the device.
func WithPowerOnTimeout(d time.Duration) Option {
	return func(o *options) {
		o.powerOnTimeout = d
	}
}

func withDialer(d dialer) Option {
	return func(o *options) {
		o.dial = d
	}
}
