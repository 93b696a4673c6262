// Package stream is the client side of /sync. A Client dials the server,
// decodes every text frame into a types.Sample and hands it to OnSample.
// When the connection drops it reports StateStale and redials with capped
// exponential backoff until its context is cancelled.
package stream
