package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	failWith error

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return f.failWith
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error { return f.record("register") }
func (f *fakeExec) Logout(context.Context) error { f.loggedIn = false; return f.record("logout") }
func (f *fakeExec) ForgotPassword(context.Context) error { return f.record("forgot") }
func (f *fakeExec) ResetPassword(context.Context) error { return f.record("reset") }
func (f *fakeExec) VerifyEmail(context.Context) error { return f.record("verify") }
func (f *fakeExec) ResendVerification(context.Context) error { return f.record("resend") }
func (f *fakeExec) Plans(context.Context) error { return f.record("plans") }
func (f *fakeExec) WhoAmI(context.Context) error { return f.record("whoami") }
func (f *fakeExec) Features(context.Context) error { return f.record("features") }

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}

func (f *fakeExec) Tier(_ context.Context, args []string) error {
	f.args = append(f.args, args)
	return f.record("tier")
}

func (f *fakeExec) Artists(_ context.Context, args []string) error {
	f.args = append(f.args, args)
	return f.record("artists")
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"",
		"register",
		"login",
		"help",
		"whoami",
		"features",
		"artists 3",
		"tier",
		"tier pro",
		"plans",
		"forgot",
		"reset",
		"verify",
		"resend",
		"logout",
		"bogus",
		"exit",
		"whoami",
	}, "\n") + "\n"

	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), f, func() string { return "(free)" }, rdr(input), &out)

	assert.Equal(t, []string{
		"register", "login", "whoami", "features", "artists", "tier", "tier",
		"plans", "forgot", "reset", "verify", "resend", "logout",
	}, f.calls)
	assert.Equal(t, [][]string{{"3"}, {}, {"pro"}}, f.args)

	s := out.String()
	assert.Contains(t, s, "fanpulse (free)> ")
	assert.Contains(t, s, helpLoggedOut)
	assert.Contains(t, s, helpLoggedIn)
	assert.Contains(t, s, "Unknown command: bogus")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), f, func() string { return "" }, rdr("plans"), &out)

	assert.Equal(t, []string{"plans"}, f.calls)
	assert.NotContains(t, out.String(), "Bye!")
}

func TestRunREPL_PrintsCommandErrors(t *testing.T) {
	f := &fakeExec{failWith: errors.New("kaput")}
	var out bytes.Buffer
	runREPL(context.Background(), f, func() string { return "" }, rdr("plans\nexit\n"), &out)

	assert.Contains(t, out.String(), "Error: kaput")
}
