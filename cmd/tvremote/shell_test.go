package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tvremote "github.com/tvremote/go-tvremote"
)

func TestParseFlags_DefaultsToInteractive(t *testing.T) {
	f, err := parseFlags([]string{"--host", "tv.lan"})
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if !f.interactive {
		t.Error("no action flags should start the shell")
	}
	if f.logLevel != "info" {
		t.Errorf("logLevel = %q, want info", f.logLevel)
	}
}

func TestParseFlags_OneShot(t *testing.T) {
	f, err := parseFlags([]string{"--host", "tv.lan", "-k", "KEY_MUTE", "--store-dsn", "postgres://x"})
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if f.interactive || f.key != "KEY_MUTE" || f.storeDSN != "postgres://x" {
		t.Errorf("flags = %+v", f)
	}
	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Error("unknown flag should fail")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := parseLevel("debug"); err != nil || lvl.String() != "DEBUG" {
		t.Errorf("parseLevel(debug) = %v, %v", lvl, err)
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel(loud) should fail")
	}
}

func TestParseKeyAction(t *testing.T) {
	for in, want := range map[string]string{"click": tvremote.CmdClick, "Press": tvremote.CmdPress, "RELEASE": tvremote.CmdRelease} {
		got, err := parseKeyAction(in)
		if err != nil || got != want {
			t.Errorf("parseKeyAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseKeyAction("tap"); err == nil {
		t.Error("parseKeyAction(tap) should fail")
	}
}

func TestParseWait(t *testing.T) {
	tests := map[string]time.Duration{"250": 250 * time.Millisecond, "1.5s": 1500 * time.Millisecond, "0": 0}
	for in, want := range tests {
		got, err := parseWait(in)
		if err != nil || got != want {
			t.Errorf("parseWait(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"-5", "-1s", "soon"} {
		if _, err := parseWait(bad); err == nil {
			t.Errorf("parseWait(%q) should fail", bad)
		}
	}
}

func TestShellExec_Offline(t *testing.T) {
	remote, err := tvremote.NewRemote(tvremote.Config{Host: "127.0.0.1"}, func(tvremote.SDKError) {})
	if err != nil {
		t.Fatalf("NewRemote() error: %v", err)
	}
	sh := &shell{remote: remote}
	ctx := context.Background()
	var out bytes.Buffer

	if quit, err := sh.exec(ctx, &out, "   "); quit || err != nil {
		t.Errorf("blank line = (%v, %v)", quit, err)
	}
	if _, err := sh.exec(ctx, &out, "frobnicate"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command error = %v", err)
	}
	if _, err := sh.exec(ctx, &out, "move 1"); err != errUsage {
		t.Errorf("move with one coordinate = %v, want usage error", err)
	}
	if _, err := sh.exec(ctx, &out, "wait 200"); err != nil {
		t.Errorf("wait error: %v", err)
	}
	if remote.Mouse().Len() != 1 {
		t.Errorf("gesture queue = %d, want 1", remote.Mouse().Len())
	}
	if _, err := sh.exec(ctx, &out, "clear"); err != nil || remote.Mouse().Len() != 0 {
		t.Errorf("clear = %v, queue %d", err, remote.Mouse().Len())
	}

	out.Reset()
	quit, err := sh.exec(ctx, &out, "quit")
	if !quit || err != nil {
		t.Errorf("quit = (%v, %v)", quit, err)
	}
	if !strings.Contains(out.String(), "Exiting") {
		t.Errorf("output = %q", out.String())
	}
}
