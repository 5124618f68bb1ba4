// Package httpserver provides the base HTTP server the name registry runs
// on.
//
// BaseServer wraps a chi router with request IDs, real-IP extraction, panic
// recovery, optional CORS and slog access logging, and mounts the routes of
// each RouteRegistrar next to the standard endpoints:
//
//   - /livez    always 200 while the process serves
//   - /readyz   200, or 503 while draining
//   - /drain    mark the server not ready
//   - /undrain  mark the server ready again
//   - /debug/*  pprof, when EnablePprof is set
//
// Metrics are served on a separate listener (MetricsAddr) so they are never
// exposed on the public API address.
//
// Usage:
//
//	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
//	    ListenAddr:               ":8888",
//	    MetricsAddr:              ":9090",
//	    Log:                      logger,
//	    GracefulShutdownDuration: 10 * time.Second,
//	}, nameService)
//	if err != nil {
//	    return err
//	}
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
