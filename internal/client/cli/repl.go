package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	ResendVerification(ctx context.Context) error
	Plans(ctx context.Context) error
	Tier(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context) error
	Features(ctx context.Context) error
	Artists(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, forgot, reset, verify, resend, plans, tier [name], exit"
	helpLoggedIn  = "Available commands: whoami, features, artists <count>, plans, tier [name], verify, resend, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the FanPulse CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that prompt read from the same
// reader, so no input is buffered away from them. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "fanpulse %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "forgot":
			err = a.ForgotPassword(ctx)
		case "reset":
			err = a.ResetPassword(ctx)
		case "verify":
			err = a.VerifyEmail(ctx)
		case "resend":
			err = a.ResendVerification(ctx)
		case "plans":
			err = a.Plans(ctx)
		case "tier":
			err = a.Tier(ctx, args)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "features":
			err = a.Features(ctx)
		case "artists":
			err = a.Artists(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "Error:", describe(err))
		}
	}
}
