// Live check against a real device on the local network.
//
// Prerequisites:
//   - The TV is on and reachable; accept the pairing prompt on screen
//     the first time.
//
// Usage:
//
//	TVREMOTE_HOST=192.168.1.20 go run ./cmd/live-check
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tvremote "github.com/tvremote/go-tvremote"
)

// softErrors counts what the remote reported through its error handler.
type softErrors struct {
	mu    sync.Mutex
	kinds map[tvremote.ErrorKind]int
}

func (s *softErrors) handle(e tvremote.SDKError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[e.Kind]++
}

func (s *softErrors) take(kind tvremote.ErrorKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.kinds[kind]
	delete(s.kinds, kind)
	return n
}

func main() {
	host := os.Getenv("TVREMOTE_HOST")
	if host == "" {
		fmt.Fprintln(os.Stderr, "TVREMOTE_HOST is required")
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	passed, failed := 0, 0

	fmt.Println("=== tvremote live check ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// --- Check 1: capability probe ---
	fmt.Println("[Check 1] Probe device capabilities...")
	info, err := tvremote.NewHTTPProber().Probe(ctx, host)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		failed++
	} else {
		fmt.Printf("  PASS: %s (%s), token auth %s, power %q\n", info.Name, info.ModelName, info.TokenAuth, info.PowerState)
		passed++
	}

	// --- Check 2: pair and connect ---
	fmt.Println("[Check 2] Open the remote-control channel (accept the prompt on the TV)...")
	soft := &softErrors{kinds: make(map[tvremote.ErrorKind]int)}
	remote, err := tvremote.NewRemote(tvremote.Config{Host: host, Name: "tvremote-live-check"}, soft.handle,
		tvremote.WithLogger(logger))
	if err != nil {
		fmt.Printf("  FAIL: NewRemote: %v\n", err)
		os.Exit(1)
	}
	defer remote.Close()

	opened, err := remote.Open(ctx)
	if err != nil || !opened {
		fmt.Printf("  FAIL: opened=%v err=%v\n", opened, err)
		os.Exit(1)
	}
	cfg := remote.Config()
	fmt.Printf("  PASS: port %d, paired=%v, token set=%v\n", cfg.Port, cfg.Paired, cfg.Token != "")
	passed++

	// --- Check 3: key presses ---
	fmt.Println("[Check 3] Send KEY_VOLUP then KEY_VOLDOWN...")
	if err := remote.Control(ctx, "KEY_VOLUP", tvremote.CmdClick); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		failed++
	} else if err := remote.Control(ctx, "KEY_VOLDOWN", tvremote.CmdClick); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		failed++
	} else {
		fmt.Println("  PASS")
		passed++
	}

	// --- Check 4: application catalog ---
	fmt.Println("[Check 4] Fetch the application catalog...")
	apps, err := remote.Applications(ctx)
	timeouts := soft.take(tvremote.ErrDispatchTimeout)
	switch {
	case err != nil:
		fmt.Printf("  FAIL: %v\n", err)
		failed++
	case timeouts == 2:
		fmt.Println("  SKIP: neither catalog event arrived; firmware may not support it.")
	default:
		fmt.Printf("  PASS: %d applications (%d catalog timeouts)\n", len(apps), timeouts)
		passed++
	}

	// --- Check 5: gesture acknowledgement ---
	fmt.Println("[Check 5] Replay a pointer gesture...")
	mouse := remote.Mouse()
	mouse.Move(0, 0)
	mouse.AddWait(300 * time.Millisecond)
	mouse.Move(50, 0)
	if err := mouse.Run(ctx); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		failed++
	} else if soft.take(tvremote.ErrDispatchTimeout) > 0 {
		fmt.Println("  SKIP: the device did not acknowledge pointer mode.")
	} else {
		fmt.Println("  PASS")
		passed++
	}

	// --- Summary ---
	fmt.Println()
	fmt.Println("=== Results ===")
	fmt.Printf("  Passed: %d\n", passed)
	fmt.Printf("  Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}
