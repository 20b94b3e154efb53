/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

package statemachine

import (
	"reflect"
	"sync"
	"sync/atomic"
	"weak"

	log "github.com/massenz/slf4go/logging"
)

// State is implemented by the values a StateMachine holds.
//
// CanTransition must be pure and deterministic: the machine evaluates it on the current
// state as `current.CanTransition(current, candidate)` and may do so under contention.
type State[S any] interface {
	comparable
	CanTransition(from, to S) bool
}

// Observer is notified, synchronously, after every accepted transition.
type Observer[S any] interface {
	OnTransition(from, to S)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc[S any] func(from, to S)

func (f ObserverFunc[S]) OnTransition(from, to S) {
	f(from, to)
}

// ObserverRef is a non-owning handle to an Observer; it returns nil once the
// Observer is gone, in which case notifications are skipped.
type ObserverRef[S any] func() Observer[S]

// Weak returns a handle which does not keep the observer alive: once the caller
// drops all its references, the machine stops notifying it.
//
// Usage: statemachine.Weak[Phase](observer)
func Weak[S any, O any, P interface {
	*O
	Observer[S]
}](observer P) ObserverRef[S] {
	ptr := weak.Make((*O)(observer))
	return func() Observer[S] {
		if o := ptr.Value(); o != nil {
			return P(o)
		}
		return nil
	}
}

// Retain returns a handle which holds on to the observer for as long as the
// machine exists. Use it for funcs and values which cannot be weakly referenced.
// A nil observer, typed or not, yields a nil handle.
func Retain[S any](observer Observer[S]) ObserverRef[S] {
	if isNil(observer) {
		return nil
	}
	return func() Observer[S] {
		return observer
	}
}

// StateMachine arbitrates transitions between values of S.
//
// Reads are lock-free; writers are serialized. Notifications are delivered once
// the write lock has been released, so an Observer may call RequestTransition on
// the same machine without deadlocking.
type StateMachine[S State[S]] struct {
	logger   *log.Log
	mux      sync.Mutex
	state    atomic.Pointer[S]
	observer ObserverRef[S]
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
