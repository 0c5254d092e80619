// Package orchestrator owns the tick loop that moves jobs through discovery,
// stability confirmation, conversion, and retry scheduling. Exactly one
// conversion runs at a time.
package orchestrator
