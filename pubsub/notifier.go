/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

package pubsub

import (
	"fmt"

	log "github.com/massenz/slf4go/logging"
	protos "github.com/massenz/statemachine-proto/golang/api"
)

// Notifier is an Observer which turns every transition into an `Event` and hands it
// over to whoever reads from `Events()` (usually, one of the Publishers).
//
// OnTransition blocks until the event fits in the channel, so the buffer should be sized
// to absorb bursts of transitions.
type Notifier[S any] struct {
	logger *log.Log
	origin string
	events chan *protos.Event
}

func NewNotifier[S any](origin string, bufferSize int) *Notifier[S] {
	return &Notifier[S]{
		logger: log.NewLog(fmt.Sprintf("Notifier{%s}", origin)),
		origin: origin,
		events: make(chan *protos.Event, bufferSize),
	}
}

func (n *Notifier[S]) OnTransition(from, to S) {
	evt := NewTransitionEvent(n.origin, from, to)
	n.logger.Debug("[%s] %v -> %v", evt.EventId, from, to)
	n.events <- evt
}

func (n *Notifier[S]) Events() <-chan *protos.Event {
	return n.events
}

// Close stops the Publishers draining `Events()`; the machine observed by this Notifier
// must not transition afterwards.
func (n *Notifier[S]) Close() {
	close(n.events)
}

// SetLogLevel implements the log.Loggable interface
func (n *Notifier[S]) SetLogLevel(level log.LogLevel) {
	n.logger.Level = level
}

// LogObserver logs every transition.
type LogObserver[S any] struct {
	logger *log.Log
}

func NewLogObserver[S any](name string) *LogObserver[S] {
	return &LogObserver[S]{logger: log.NewLog(name)}
}

func (o *LogObserver[S]) OnTransition(from, to S) {
	o.logger.Info("%v -> %v", from, to)
}

func (o *LogObserver[S]) SetLogLevel(level log.LogLevel) {
	o.logger.Level = level
}
