// Package events fans download lifecycle events out to listeners.
//
// Every subscription owns a FIFO mailbox drained by its own goroutine, so a
// publisher never blocks on a slow listener and each listener sees events in
// publish order. Delivery can be marshalled onto the consumer's execution
// context with WithExecutor, or turned into a channel with ChannelListener.
package events
