// Command bindery is the CLI entry point: it runs the daemon in the
// foreground and inspects its state over the HTTP API and on-disk records.
package main
