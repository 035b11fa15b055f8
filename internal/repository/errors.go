// Package repository provides data access for reservation lifecycle
// records.  Two implementations share one contract: an in-process map
// for development and replay, and a MySQL-backed store for durable
// deployments.  Sentinel errors let higher layers distinguish failure
// scenarios without inspecting strings.
package repository

import "errors"

// ErrReservationNotFound is returned when looking up a reservation id
// that was never recorded.  Handlers translate it into an HTTP 404
// response; the coordinator treats it as "safe to process".
var ErrReservationNotFound = errors.New("reservation not found")
