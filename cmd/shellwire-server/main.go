// Command shellwire-server runs a shellwire server bound to a TCP, Unix
// domain, or (on Windows) named pipe listener, accepting framed,
// authenticated connections and binding each to a shell engine backed by
// the built-in command registry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaunie2fly/shellwire/builtin"
	"github.com/shaunie2fly/shellwire/internal/config"
	"github.com/shaunie2fly/shellwire/internal/log"
	"github.com/shaunie2fly/shellwire/registry"
	"github.com/shaunie2fly/shellwire/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a server YAML config file (optional; defaults apply otherwise)")
	logPath := flag.String("log-file", "", "path to a rotating log file (stderr if unset)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	level := parseLevel(*logLevel)

	var logWriter *log.RotatingFile
	var logOut *os.File
	if *logPath != "" {
		rf, err := log.NewRotatingFile(*logPath, 10*1024*1024, 5)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shellwire-server: open log file: %v\n", err)
			return 1
		}
		logWriter = rf
		defer logWriter.Close()
	} else {
		logOut = os.Stderr
	}

	var logger *slog.Logger
	if logWriter != nil {
		logger = log.New(logWriter, level)
	} else {
		logger = log.New(logOut, level)
	}

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadServerConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return 1
		}
		cfg = loaded
	}

	reg := registry.New(nil)
	builtin.Register(reg)

	srv := server.New(cfg, reg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		return 1
	}
	logger.Info("shellwire-server listening", "addr", addrString(cfg))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	srv.Stop()
	return 0
}

func addrString(cfg server.Config) string {
	switch cfg.ListenerKind {
	case server.ListenerTCP:
		return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	default:
		return cfg.SocketPath
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
