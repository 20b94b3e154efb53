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
	log "github.com/massenz/slf4go/logging"
)

// New creates a StateMachine in the `initial` state, which is trusted as-is.
// A nil `observer` is allowed and means nobody is notified.
func New[S State[S]](initial S, observer ObserverRef[S]) *StateMachine[S] {
	machine := &StateMachine[S]{
		logger:   log.NewLog("StateMachine"),
		observer: observer,
	}
	machine.state.Store(&initial)
	return machine
}

// State returns the current state.
func (machine *StateMachine[S]) State() S {
	return *machine.state.Load()
}

// RequestTransition moves the machine to `to` if the current state allows it, and
// then notifies the Observer. It returns false, leaving the state untouched and
// without notifying anyone, if the transition is not allowed.
func (machine *StateMachine[S]) RequestTransition(to S) bool {
	from, ok := machine.apply(to)
	if !ok {
		machine.logger.Debug("rejected transition %v -> %v", from, to)
		return false
	}
	machine.logger.Trace("transition %v -> %v", from, to)
	machine.notify(from, to)
	return true
}

// apply is the critical section: the validation and the write happen while holding
// the lock, so that a concurrent writer always sees the state left by the previous one.
func (machine *StateMachine[S]) apply(to S) (S, bool) {
	machine.mux.Lock()
	defer machine.mux.Unlock()

	current := machine.State()
	if !current.CanTransition(current, to) {
		return current, false
	}
	machine.state.Store(&to)
	return current, true
}

func (machine *StateMachine[S]) notify(from, to S) {
	if machine.observer == nil {
		return
	}
	observer := machine.observer()
	if observer == nil {
		machine.logger.Trace("observer is gone, skipping notification %v -> %v", from, to)
		return
	}
	observer.OnTransition(from, to)
}

// SetLogLevel implements the log.Loggable interface
func (machine *StateMachine[S]) SetLogLevel(level log.LogLevel) {
	machine.logger.Level = level
}
