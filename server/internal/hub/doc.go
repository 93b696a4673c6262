// Package hub implements the process-wide broadcast point between the sampler
// (one producer) and the /sync connections (zero or more consumers).
//
// Every Subscription has a single-slot mailbox. Publish overwrites the slot
// instead of queueing, so a slow consumer always sees the newest sample and
// never forces the producer to wait or memory to grow:
//
//	h := hub.New()
//	sub := h.Subscribe()
//	defer sub.Close()
//	s, err := sub.Recv(ctx)
//
// A Subscription only receives samples published after Subscribe returned.
package hub
