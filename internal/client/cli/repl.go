package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Add(ctx context.Context, collection string) error
	Get(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) error
	Update(ctx context.Context, collection, id string) error
	Delete(ctx context.Context, collection, id string) error
	Push(ctx context.Context, collection string) error
	Pull(ctx context.Context, collection string) error
	Notice(ctx context.Context) error
}

type command struct {
	args  []string
	run   func(ctx context.Context, a execIface, args []string) error
	authz bool
}

var commands = map[string]command{
	"register": {run: func(ctx context.Context, a execIface, _ []string) error { return a.Register(ctx) }},
	"login":    {run: func(ctx context.Context, a execIface, _ []string) error { return a.Login(ctx) }},
	"logout":   {authz: true, run: func(ctx context.Context, a execIface, _ []string) error { return a.Logout(ctx) }},
	"notice":   {run: func(ctx context.Context, a execIface, _ []string) error { return a.Notice(ctx) }},
	"add": {authz: true, args: []string{"collection"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Add(ctx, args[0]) }},
	"list": {authz: true, args: []string{"collection"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.List(ctx, args[0]) }},
	"get": {authz: true, args: []string{"collection", "id"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Get(ctx, args[0], args[1]) }},
	"update": {authz: true, args: []string{"collection", "id"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Update(ctx, args[0], args[1]) }},
	"delete": {authz: true, args: []string{"collection", "id"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Delete(ctx, args[0], args[1]) }},
	"push": {authz: true, args: []string{"collection"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Push(ctx, args[0]) }},
	"pull": {authz: true, args: []string{"collection"},
		run: func(ctx context.Context, a execIface, args []string) error { return a.Pull(ctx, args[0]) }},
}

func usage(name string, c command) string {
	s := "Usage: " + name
	for _, arg := range c.args {
		s += " <" + arg + ">"
	}
	return s
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
//	Not logged in:
//	  - help                       show available commands
//	  - register                   create an account
//	  - login                      authenticate
//	  - notice                     show a pending store-reset notice
//	  - exit | quit                leave the program
//
//	Logged in, additionally:
//	  - add <collection>           add a document
//	  - list <collection>          list documents
//	  - get <collection> <id>      show one document
//	  - update <collection> <id>   change fields ("name=" removes one)
//	  - delete <collection> <id>   delete a document
//	  - push | pull <collection>   copy to/from the encrypted replica
//	  - logout                     forget the key and the session
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("zk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, list, get, update, delete, push, pull, notice, logout, exit")
			} else {
				printlnFn("Available commands: register, login, notice, exit")
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := commands[name]
		switch {
		case !ok:
			printlnFn("Unknown command:", name)
		case c.authz && !a.isLoggedIn():
			printlnFn("Please login first")
		case len(args) != len(c.args):
			printlnFn(usage(name, c))
		default:
			if err := c.run(ctx, a, args); err != nil {
				printlnFn("Error:", err)
			}
		}

		if err != nil {
			return
		}
	}
}
