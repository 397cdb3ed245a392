package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printFn and printlnFn are test seams for user-facing output. In tests,
// replace them with stubs.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Profile(ctx context.Context) error
	Passwd(ctx context.Context) error
	Avatar(ctx context.Context, args []string) error
	Users(ctx context.Context, args []string) error
	User(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
}

const (
	helpGuest = "Available commands: register, login, forgot, reset <token>, exit"
	helpUser  = "Available commands: me, profile, passwd, avatar <file>, user <id>, update <id> [flags], logout, exit"
	helpAdmin = "Admin commands: users [-page N] [-limit N] [-search s] [-role r] [-active bool], delete <id>, stats"
)

// guestOnly commands make no sense with a live session.
var guestOnly = map[string]bool{"register": true, "login": true, "forgot": true, "reset": true}

// runREPL starts a simple read–eval–print loop for the webtoz CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on 'a' with the remaining tokens as arguments. The
// loop exits on EOF or when the user types "exit" or "quit". Command errors
// are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("webtoz %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			printHelp(a)
			continue
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn(describe(err))
		}
	}
}

func printHelp(a execIface) {
	if !a.isLoggedIn() {
		printlnFn(helpGuest)
		return
	}
	printlnFn(helpUser)
	if a.isAdmin() {
		printlnFn(helpAdmin)
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	if guestOnly[cmd] {
		if a.isLoggedIn() {
			return userError("Already logged in; logout first")
		}
	} else if _, known := commands[cmd]; known && !a.isLoggedIn() {
		return errNotLoggedIn
	}

	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "forgot":
		return a.Forgot(ctx)
	case "reset":
		return a.Reset(ctx, args)
	}

	run, ok := commands[cmd]
	if !ok {
		return userError("Unknown command: " + cmd)
	}
	return run(ctx, a, args)
}

// commands lists everything that needs a session.
var commands = map[string]func(context.Context, execIface, []string) error{
	"logout":  func(ctx context.Context, a execIface, _ []string) error { return a.Logout(ctx) },
	"me":      func(ctx context.Context, a execIface, _ []string) error { return a.Me(ctx) },
	"profile": func(ctx context.Context, a execIface, _ []string) error { return a.Profile(ctx) },
	"passwd":  func(ctx context.Context, a execIface, _ []string) error { return a.Passwd(ctx) },
	"avatar":  func(ctx context.Context, a execIface, args []string) error { return a.Avatar(ctx, args) },
	"users":   func(ctx context.Context, a execIface, args []string) error { return a.Users(ctx, args) },
	"user":    func(ctx context.Context, a execIface, args []string) error { return a.User(ctx, args) },
	"update":  func(ctx context.Context, a execIface, args []string) error { return a.Update(ctx, args) },
	"delete":  func(ctx context.Context, a execIface, args []string) error { return a.Delete(ctx, args) },
	"stats":   func(ctx context.Context, a execIface, _ []string) error { return a.Stats(ctx) },
}
