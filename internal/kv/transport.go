// Package kv talks to the key-value backend that holds every site document.
//
// Each backend answers a read with a ReadOutcome so callers never have to
// inspect response shapes: the value was found, the key is absent, or the call
// failed with a status and body.
package kv

import (
	"context"
	"fmt"
)

type OutcomeKind int

const (
	OutcomeAbsent OutcomeKind = iota
	OutcomeFound
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeFailure:
		return "failure"
	default:
		return "absent"
	}
}

// ReadOutcome is the result of a single Get.
type ReadOutcome struct {
	Kind OutcomeKind
	Raw  string
	// Status and Body are set for OutcomeFailure. Status is 0 when no
	// response was received; Err then holds the cause.
	Status int
	Body   string
	Err    error
}

func Found(raw string) ReadOutcome { return ReadOutcome{Kind: OutcomeFound, Raw: raw} }

func Absent() ReadOutcome { return ReadOutcome{Kind: OutcomeAbsent} }

func Failure(status int, body string, err error) ReadOutcome {
	return ReadOutcome{Kind: OutcomeFailure, Status: status, Body: body, Err: err}
}

// Transport issues single-attempt reads and writes of pre-serialized values.
// Set is all-or-nothing from the caller's point of view.
type Transport interface {
	Get(ctx context.Context, key string) ReadOutcome
	Set(ctx context.Context, key, raw string) error
	Name() string
}

// KeyFor builds the storage key of a resource, e.g. "walk4health:events".
func KeyFor(prefix, resource string) string {
	if prefix == "" {
		return resource
	}
	return fmt.Sprintf("%s:%s", prefix, resource)
}
