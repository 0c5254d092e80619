// Package inbox discovers candidate books dropped into the watched inbox
// directory. It only lists candidates; lifecycle decisions belong to the
// registry and orchestrator.
package inbox
