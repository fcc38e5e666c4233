// Package cli provides the interactive FanPulse command-line client.
//
// It wires configuration, local storage, the session store, the entitlement
// resolver, the API client and an interactive REPL. Typical flow: hydrate the
// persisted session and tier, start a background connectivity watcher, and
// execute user commands.
//
// Key features:
//   - Register / Login / Logout and the email verification and password
//     reset flows
//   - Plans and tier selection
//   - Protected commands (whoami, features, artists) that only run after the
//     stored credential has been verified with the backend
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
