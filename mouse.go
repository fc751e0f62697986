package tvremote

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

// The three mode transitions the device acknowledges during a gesture run.
var gestureAckEvents = [...]string{EventIMEStart, EventIMEUpdate, EventTouchEnable}

// gestureCommand is either an encoded frame or a pause.
type gestureCommand struct {
	frame []byte
	wait  time.Duration
}

type mouseParams struct {
	Cmd          string         `json:"Cmd"`
	TypeOfRemote string         `json:"TypeOfRemote"`
	Position     *mousePosition `json:"Position,omitempty"`
}

type mousePosition struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Time string `json:"Time"`
}

// Mouse buffers pointer gestures and replays them as one timed run.
// The buffer can only change while no run is in progress.
type Mouse struct {
	remote *Remote

	mu       sync.Mutex
	running  bool
	commands []gestureCommand
	stop     chan struct{}

	now func() time.Time
}

func newMouse(r *Remote) *Mouse {
	return &Mouse{remote: r, now: time.Now}
}

// IsRunning reports whether a run is in progress.
func (m *Mouse) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Len returns the number of buffered commands.
func (m *Mouse) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

// Clear empties the buffer.
func (m *Mouse) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrGestureRunning
	}
	m.commands = nil
	return nil
}

func (m *Mouse) LeftClick() error {
	return m.enqueueFrame(mouseParams{Cmd: "LeftClick"})
}

func (m *Mouse) RightClick() error {
	return m.enqueueFrame(mouseParams{Cmd: "RightClick"})
}

// Move queues a pointer move stamped with the current time.
func (m *Mouse) Move(x, y int) error {
	ts := float64(m.now().UnixMicro()) / 1e6
	return m.enqueueFrame(mouseParams{
		Cmd: "Move",
		Position: &mousePosition{
			X:    x,
			Y:    y,
			Time: strconv.FormatFloat(ts, 'f', -1, 64),
		},
	})
}

// AddWait queues a pause of d between the surrounding commands.
func (m *Mouse) AddWait(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrGestureRunning
	}
	m.commands = append(m.commands, gestureCommand{wait: d})
	return nil
}

func (m *Mouse) enqueueFrame(p mouseParams) error {
	if !m.remote.Connected() {
		return ErrConnectionClosed
	}
	p.TypeOfRemote = "ProcessMouseDevice"
	data, err := marshalFrame(MethodRemoteControl, p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrGestureRunning
	}
	m.commands = append(m.commands, gestureCommand{frame: data})
	return nil
}

// Stop interrupts a run: a pending pause or acknowledgement wait returns
// immediately and no further commands are sent.
func (m *Mouse) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.stop == nil {
		return
	}
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// Run replays the buffer and waits for the device to acknowledge the
// gesture. A run already in progress, or a closed connection, makes Run
// return without doing anything.
func (m *Mouse) Run(ctx context.Context) error {
	r := m.remote
	if !r.Connected() {
		r.logger.Error("gesture run skipped, is the device on?")
		return nil
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		r.logger.Debug("gesture run already in progress")
		return nil
	}
	m.running = true
	stop := make(chan struct{})
	m.stop = stop
	commands := slices.Clone(m.commands)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if stopped(stop) {
		r.logger.Debug("gesture run stopped")
		return nil
	}

	var acks [len(gestureAckEvents)]chan struct{}
	var subs [len(gestureAckEvents)]*subscription
	for i, event := range gestureAckEvents {
		ch := make(chan struct{})
		acks[i] = ch
		subs[i] = r.registry.register("event", event, func(*Message) { close(ch) })
	}
	defer func() {
		for _, sub := range subs {
			r.registry.unregister(sub)
		}
	}()

	for _, c := range commands {
		if c.frame == nil {
			timer := time.NewTimer(c.wait)
			select {
			case <-timer.C:
			case <-stop:
				timer.Stop()
				r.logger.Debug("gesture run stopped")
				return nil
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			continue
		}

		if stopped(stop) {
			r.logger.Debug("gesture run stopped")
			return nil
		}
		t := r.connection()
		if t == nil {
			return ErrConnectionClosed
		}
		r.logger.Info("sending mouse control command", slog.String("frame", string(c.frame)))
		if err := t.send(c.frame); err != nil {
			return err
		}
	}

	deadline := time.NewTimer(time.Duration(len(commands)) * r.opts.gestureAckTimeout)
	defer deadline.Stop()
	for i, ch := range acks {
		select {
		case <-ch:
		case <-stop:
			return nil
		case <-deadline.C:
			r.report(SDKError{Kind: ErrDispatchTimeout, Event: gestureAckEvents[i]})
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
