// Package client implements the shellwire client runtime: it
// establishes a TCP or Unix domain connection, authenticates,
// bridges a local input stream into INPUT frames and server OUTPUT
// frames into a local output stream, correlates request/response pairs
// by message id, and reconnects on disconnect per a configurable
// backoff policy.
//
// # Quick start
//
//	cfg := client.DefaultConfig()
//	cfg.Addr = "127.0.0.1:2222"
//	c := client.New(cfg, client.Events{
//	    OnOutput: func(s string) { fmt.Print(s) },
//	}, nil)
//	if err := c.Connect(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Disconnect()
//	io.Copy(c.Input(), os.Stdin)
package client
