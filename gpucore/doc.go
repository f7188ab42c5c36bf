// Package gpucore defines the leaf identifiers shared by every compositor
// package: resource ids, sync tokens, mailboxes and resource pixel formats.
//
// Nothing in this package talks to a device. The types are plain values so
// that the registry, the texture tracker, the video updater and the overlay
// selector can exchange them without importing each other.
//
// # Resource IDs
//
// A [ResourceID] is process-unique for the lifetime of a registry. The zero
// value is [InvalidID] and never names a live resource.
//
// # Sync tokens
//
// A [SyncToken] is a monotonically increasing fence value. Zero means "no
// fence": a release carrying a zero token retires immediately.
package gpucore
