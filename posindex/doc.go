// Package posindex implements a small ordered index over position-keyed
// entries. Unlike a build-once sorted list searched many times, the index
// is mutable: entries are inserted and removed one at a time as a
// streaming graph admits and drains nodes.
package posindex
