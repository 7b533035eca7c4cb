// Package events publishes configuration changes to in-process subscribers
// after the change has committed. Subscribers never take part in the write
// transaction; a failing subscriber cannot undo a committed change.
package events
