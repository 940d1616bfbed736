// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Usage:
//
//	h := shutdown.NewHandler(15*time.Second, log)
//	h.OnShutdown(srv.Shutdown)
//	h.OnShutdown(func(context.Context) error { return session.Close() })
//	err := h.Wait() // blocks until SIGINT or SIGTERM
//
// Hooks run in reverse registration order under one shared timeout.
package shutdown
