// Command shellwire-client connects to a shellwire server, puts the local
// terminal into raw mode, and bridges stdin/stdout to the remote shell
// session until the connection is closed or the process receives SIGINT
// or SIGTERM.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shaunie2fly/shellwire/client"
	"github.com/shaunie2fly/shellwire/internal/config"
	"github.com/shaunie2fly/shellwire/internal/log"
	"github.com/shaunie2fly/shellwire/protocol"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a client YAML config file (optional; defaults apply otherwise)")
	addr := flag.String("addr", "", "server address (overrides config/default, e.g. 127.0.0.1:2222)")
	username := flag.String("user", "", "username for BASIC auth")
	authType := flag.String("auth", "", "auth type: none, basic, token (overrides config)")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	logger := log.New(os.Stderr, parseLevel(*logLevel))

	cfg := client.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shellwire-client: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *authType != "" {
		cfg.AuthType = protocol.AuthType(*authType)
	}
	if cfg.AuthType == protocol.AuthBasic && cfg.Password == "" {
		cfg.Password = readPassword()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "shellwire-client: invalid config: %v\n", err)
		return 1
	}

	done := make(chan struct{})
	c := client.New(cfg, client.Events{
		OnOutput: func(s string) { fmt.Print(s) },
		OnError: func(msg string, code protocol.ErrorCode) {
			fmt.Fprintf(os.Stderr, "\r\n[error %s] %s\r\n", code, msg)
		},
		OnDisconnect: func(reason string) {
			fmt.Fprintf(os.Stderr, "\r\ndisconnected: %s\r\n", reason)
			closeOnce(done)
		},
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shellwire-client: connect: %v\n", err)
		return 1
	}
	defer c.Disconnect()

	restore := enterRawMode()
	defer restore()

	go func() { _, _ = io.Copy(c.Input(), os.Stdin) }()
	go func() { _, _ = io.Copy(os.Stdout, c.Output()) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}
	return 0
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// enterRawMode puts stdin into raw mode if it is a terminal, so individual
// keystrokes (including escape sequences the remote line editor needs, per
// spec.md §4.4) reach the connection unbuffered and unechoed. It returns a
// restore function safe to call even when stdin wasn't a terminal.
func enterRawMode() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	return func() { _ = term.Restore(fd, state) }
}

func readPassword() string {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, "Password: ")
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return string(pw)
	}
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
