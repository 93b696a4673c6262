// Package ws implements the /sync endpoint: one Handler serves every client,
// and each upgraded connection relays samples from its own hub subscription
// to the peer until either side fails.
//
// Connection lifecycle:
//
//	subscribed -> relaying -> closed
//
// relaying is the steady state (one text frame per received sample). A write
// error, the peer closing the socket, a missed pong or the hub shutting down
// moves the connection to closed and releases its subscription.
//
// Message format sent to clients (types.Sample wire form):
//
//	{"cpus": [12.5, 0, 99.9], "ram": [4096, 8192]}
//
// Frames sent by the client are read and discarded. The upgrader accepts all
// origins.
package ws
