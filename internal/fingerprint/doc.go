// Package fingerprint computes content fingerprints for inbox books and
// decides when a book has been unchanged long enough to process safely.
// A fingerprint covers the names and sizes of audio files only, so copies
// in progress keep shifting the hash until they settle.
package fingerprint
