package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	tvremote "github.com/tvremote/go-tvremote"
)

type shell struct {
	remote *tvremote.Remote
	rl     *readline.Instance
}

func newShell(remote *tvremote.Remote) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tv> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &shell{remote: remote, rl: rl}, nil
}

func (s *shell) run(ctx context.Context) error {
	defer s.rl.Close()
	out := s.rl.Stdout()
	printHelp(out)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}

		quit, err := s.exec(ctx, out, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

var errUsage = errors.New("wrong arguments (type 'help' for commands)")

// exec runs one shell line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, out io.Writer, line string) (bool, error) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]
	mouse := s.remote.Mouse()

	switch cmd {
	case "help", "?":
		printHelp(out)
	case "key", "k":
		if len(args) == 0 || len(args) > 2 {
			return false, errUsage
		}
		action := tvremote.CmdClick
		if len(args) == 2 {
			var err error
			if action, err = parseKeyAction(args[1]); err != nil {
				return false, err
			}
		}
		return false, s.remote.Control(ctx, strings.ToUpper(args[0]), action)
	case "text", "t":
		if len(args) == 0 {
			return false, errUsage
		}
		return false, s.remote.InputText(ctx, strings.Join(args, " "))
	case "apps":
		return false, printApplications(ctx, s.remote, out)
	case "launch":
		if len(args) == 0 {
			return false, errUsage
		}
		app, err := s.remote.GetApplication(ctx, strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		return false, app.Launch(ctx)
	case "move", "m":
		if len(args) != 2 {
			return false, errUsage
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return false, errUsage
		}
		return false, mouse.Move(x, y)
	case "click", "c":
		if len(args) > 0 && strings.EqualFold(args[0], "right") {
			return false, mouse.RightClick()
		}
		return false, mouse.LeftClick()
	case "wait", "w":
		if len(args) != 1 {
			return false, errUsage
		}
		d, err := parseWait(args[0])
		if err != nil {
			return false, err
		}
		return false, mouse.AddWait(d)
	case "run", "r":
		fmt.Fprintf(out, "Running %d gesture commands\n", mouse.Len())
		return false, mouse.Run(ctx)
	case "clear":
		return false, mouse.Clear()
	case "voice":
		if len(args) != 1 {
			return false, errUsage
		}
		switch strings.ToLower(args[0]) {
		case "start":
			return false, s.remote.StartVoiceRecognition(ctx)
		case "stop":
			return false, s.remote.StopVoiceRecognition(ctx)
		}
		return false, errUsage
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Exiting...")
		return true, nil
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	return false, nil
}

func parseKeyAction(s string) (string, error) {
	switch strings.ToLower(s) {
	case "click":
		return tvremote.CmdClick, nil
	case "press":
		return tvremote.CmdPress, nil
	case "release":
		return tvremote.CmdRelease, nil
	}
	return "", fmt.Errorf("unknown key action %q, want click, press or release", s)
}

// parseWait accepts a Go duration or a bare number of milliseconds.
func parseWait(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative wait %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative wait %q", s)
	}
	return d, nil
}

func printApplications(ctx context.Context, remote *tvremote.Remote, out io.Writer) error {
	apps, err := remote.Applications(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%d\n", app.ID, app.Name, app.AppType)
	}
	return w.Flush()
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Commands:
  key <KEY> [click|press|release]  Send a remote key (e.g. key KEY_HOME)
  text <string>                    Type into the focused input field
  apps                             List applications
  launch <id|name>                 Launch an application
  move <x> <y>                     Queue a pointer move
  click [left|right]               Queue a click
  wait <duration>                  Queue a pause (ms or Go duration)
  run                              Replay the queued gesture
  clear                            Empty the gesture queue
  voice start|stop                 Toggle voice recognition
  quit                             Exit`)
}
