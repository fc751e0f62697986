// Package tvremote is a client for the websocket remote-control channel of
// networked TVs.
//
// A Remote owns one connection. Open performs the pairing handshake,
// falling back from the plaintext endpoint (port 8001) to the encrypted
// one (port 8002) once when the device denies or ignores the plaintext
// session. A background receive loop dispatches inbound events to one-shot
// waiters; commands and gesture runs share a single receive lock so their
// writes never interleave with a handshake.
//
// Basic usage:
//
//	remote, err := tvremote.NewRemote(tvremote.Config{
//	    Host: "192.168.1.20",
//	    Name: "living-room-remote",
//	}, tvremote.LogErrors(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := remote.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer remote.Close()
//
//	remote.Control(ctx, "KEY_VOLUP", tvremote.CmdClick)
//
// Gestures are buffered on the remote's Mouse and replayed with Run:
//
//	mouse := remote.Mouse()
//	mouse.Move(100, 50)
//	mouse.AddWait(200 * time.Millisecond)
//	mouse.LeftClick()
//	mouse.Run(ctx)
package tvremote
