package tvremote

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Power reports and changes the device's power state.
type Power interface {
	PoweredOn(ctx context.Context) bool
	PowerOn(ctx context.Context) error
}

// PowerOffer is implemented by a Power that can switch the device off
// itself. Without it the remote sends KeyPowerOff.
type PowerOffer interface {
	PowerOff(ctx context.Context) error
}

// probePower treats a device that answers the capability probe, and is
// not in standby, as powered on. Powering on uses wake-on-LAN.
type probePower struct {
	prober  Prober
	host    string
	mac     string
	timeout time.Duration
	logger  *slog.Logger

	wolAddr string
}

func newProbePower(p Prober, host, mac string, timeout time.Duration, logger *slog.Logger) *probePower {
	return &probePower{
		prober:  p,
		host:    host,
		mac:     mac,
		timeout: timeout,
		logger:  logger,
		wolAddr: "255.255.255.255:9",
	}
}

func (p *probePower) PoweredOn(ctx context.Context) bool {
	info, err := p.prober.Probe(ctx, p.host)
	if err != nil {
		return false
	}
	return info.PowerState != "standby"
}

// PowerOn wakes the device and polls until it answers or the timeout elapses.
func (p *probePower) PowerOn(ctx context.Context) error {
	if p.PoweredOn(ctx) {
		return nil
	}
	if p.mac == "" {
		return fmt.Errorf("%w: no MAC address configured for wake-on-LAN", ErrDeviceUnreachable)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	b := newBackoff(500*time.Millisecond, 4*time.Second)
	for {
		if err := sendMagicPacket(p.wolAddr, p.mac); err != nil {
			return fmt.Errorf("wake-on-LAN: %w", err)
		}
		p.logger.Debug("sent wake-on-LAN packet", slog.String("mac", p.mac))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrDeviceUnreachable, ctx.Err())
		case <-time.After(b.next()):
		}
		if p.PoweredOn(ctx) {
			return nil
		}
	}
}

// magicPacket builds the wake-on-LAN payload: six 0xFF bytes followed by
// the hardware address repeated sixteen times.
func magicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, err
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("wake-on-LAN needs a 48-bit MAC, got %q", mac)
	}
	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}

func sendMagicPacket(addr, mac string) error {
	packet, err := magicPacket(mac)
	if err != nil {
		return err
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(packet)
	return err
}

// backoff doubles the poll interval up to a ceiling.
type backoff struct {
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{max: max, current: initial}
}

func (b *backoff) next() time.Duration {
	d := min(b.current, b.max)
	b.current = min(b.current*2, b.max)
	return d
}
