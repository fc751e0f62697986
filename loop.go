package tvremote

import (
	"sync/atomic"
	"time"
)

type loopState int32

const (
	loopIdle loopState = iota
	loopRunning
	loopStopping
)

func (s loopState) String() string {
	switch s {
	case loopIdle:
		return "idle"
	case loopRunning:
		return "running"
	case loopStopping:
		return "stopping"
	}
	return "unknown"
}

// receiveLoop is the only reader of a transport. It feeds every decoded
// frame to the registry and tears down once the transport fails.
type receiveLoop struct {
	t   transport
	reg *callbackRegistry

	// onStop runs during Stopping, after pending entries were dropped.
	onStop func(t transport, err error)
	// onParseError runs for a frame that could not be decoded.
	onParseError func(data []byte, err error)

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}
}

func newReceiveLoop(t transport, reg *callbackRegistry) *receiveLoop {
	return &receiveLoop{
		t:    t,
		reg:  reg,
		done: make(chan struct{}),
	}
}

// start launches the loop goroutine. A loop serves a single connection, so
// any second start fails.
func (l *receiveLoop) start() error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	l.state.Store(int32(loopRunning))
	go l.run()
	return nil
}

func (l *receiveLoop) run() {
	var err error
	for {
		var data []byte
		data, err = l.t.receive()
		if err != nil {
			break
		}
		if len(data) == 0 {
			continue
		}

		msg, perr := parseMessage(data)
		if perr != nil {
			if l.onParseError != nil {
				l.onParseError(data, perr)
			}
			err = perr
			break
		}
		l.reg.dispatch(msg)
	}

	l.state.Store(int32(loopStopping))
	l.reg.clear()
	if l.onStop != nil {
		l.onStop(l.t, err)
	}
	l.state.Store(int32(loopIdle))
	close(l.done)
}

func (l *receiveLoop) current() loopState {
	return loopState(l.state.Load())
}

// wait blocks until the loop is idle again or timeout elapses.
func (l *receiveLoop) wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return ErrLoopStuck
	}
}
