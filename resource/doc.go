// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource implements the GPU resource registry: allocation of
// texture and shared-memory backings, mailbox export, uploads, and
// reference counting with fenced releases.
//
// # Lifetime
//
// A resource is created by [Registry.Allocate] with a reference count of
// zero. Every frame that hands the resource to a consumer calls
// [Registry.MarkInUse]; when the consumer is done it calls
// [Registry.MarkReleased] with the sync token after which the GPU no longer
// reads the resource. The reference is dropped only once that token has
// been signalled through [Registry.SignalFence]. [Registry.Delete] refuses
// to free a resource that still holds references.
//
// # Threads
//
// The registry is driven from the compositor goroutine. SignalFence may be
// called from a GPU completion goroutine; it only touches the atomic
// reference counts and the per-resource release queues, each under its own
// narrow lock. Release callbacks of one resource run in FIFO order.
package resource
