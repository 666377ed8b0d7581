// Package server provides HTTP routing, middleware, and the local OAuth2 callback listener.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] uses [http.ServeMux] internally with method filtering, and [RequestLogger] logs each request.
//
// # Callback Listener
//
// [CallbackListener] receives the browser redirect that ends an authorization code grant.
// A desktop application has no public redirect endpoint, so a short-lived server is bound to the
// loopback address registered as the redirect URI for the duration of one attempt:
//
//	listening -> callback with matching state -> stopped
//	listening -> /stop -> stopped
//
// Redirects with a foreign state are answered with 500 and do not end the attempt.
// [CallbackListener.Wait] blocks until the attempt ends and always shuts the server down before returning.
//
// [StopListener] hits the stop path so a pending attempt can be cancelled from another process.
package server
