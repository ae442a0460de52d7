// Package shellwire provides an interactive remote shell framework: a
// line-oriented terminal shell whose command registry, argument parser,
// and line editor can run locally or be exposed over a newline-delimited
// JSON protocol carried on TCP or Unix domain sockets, with authenticated
// sessions, streaming shell output, and resilient client reconnection.
//
// # Architecture
//
// The packages are layered so each only depends on the ones before it:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  server/        session engine: listener, auth, keepalive│
//	│  client/        connection, dispatch loop, reconnection  │
//	├─────────────────────────────────────────────────────────┤
//	│  shellengine/   line-editor state machine                │
//	├─────────────────────────────────────────────────────────┤
//	│  registry/      command tree, resolution, help, suggest  │
//	├─────────────────────────────────────────────────────────┤
//	│  arg/           argv tokenizer against a parameter schema│
//	├─────────────────────────────────────────────────────────┤
//	│  protocol/      wire codec: envelope, framing, validation │
//	└─────────────────────────────────────────────────────────┘
//
// builtin provides the stub command set (help, echo) that a server or
// local shell registers by default. internal/config loads server and
// client configuration from YAML; internal/log and internal/security
// provide the shared logging and structured security-event stack.
//
// # Quick start
//
//	reg := registry.New(nil)
//	builtin.Register(reg)
//	srv := server.New(server.DefaultConfig(), reg, nil)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
package shellwire
