/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

// CLI to drive a table-configured state machine through a sequence of requested states.
//
// Usage: fsm -config worker.yaml [-observer log|sqs|redis] working done ready
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/massenz/slf4go/logging"

	"github.com/massenz/simple-statemachine/pubsub"
	"github.com/massenz/simple-statemachine/statemachine"
)

const (
	logObserver   = "log"
	sqsObserver   = "sqs"
	redisObserver = "redis"

	// notificationsBuffer is how many transitions can be pending publication before
	// the machine blocks.
	notificationsBuffer = 16
)

var logger = log.NewLog("fsm")

func main() {
	var configFile = flag.String("config", "", "YAML file with the transition table (required)")
	var observerKind = flag.String("observer", logObserver,
		"How transitions are notified: one of `log`, `sqs` or `redis`")
	var awsEndpoint = flag.String("endpoint-url", "",
		"HTTP URL for AWS SQS to connect to; usually best left undefined, "+
			"unless required for local testing purposes (LocalStack uses http://localhost:4566)")
	var notificationsTopic = flag.String("notifications", "",
		"The name of the SQS queue to publish transitions to (with -observer sqs)")
	var redisUrl = flag.String("redis", "localhost:6379", "host:port of the Redis server (with -observer redis)")
	var redisChannel = flag.String("redis-channel", "transitions",
		"The Redis channel to publish transitions to (with -observer redis)")
	var timeout = flag.Duration("timeout", pubsub.DefaultTimeout,
		"Timeout for Redis (as a Duration string, e.g. 1s, 20ms, etc.)")
	var debug = flag.Bool("debug", false, "Verbose logs")
	var trace = flag.Bool("trace", false,
		"Extremely verbose logs for every transition (will override the -debug option)")
	flag.Parse()

	if *configFile == "" {
		logger.Fatal(errors.New("a transition table must be given with -config"))
	}
	table, err := statemachine.NewTableFromFile(*configFile)
	if err != nil {
		logger.Fatal(fmt.Errorf("cannot load %s: %w", *configFile, err))
	}
	targets, err := lookupStates(table, flag.Args())
	if err != nil {
		logger.Fatal(err)
	}
	level := logLevel(*debug, *trace)
	logger.Level = level

	var wg sync.WaitGroup
	var observer statemachine.Observer[statemachine.TableState]
	var notifier *pubsub.Notifier[statemachine.TableState]
	switch *observerKind {
	case logObserver:
		o := pubsub.NewLogObserver[statemachine.TableState](table.Name)
		o.SetLogLevel(level)
		observer = o
	case sqsObserver:
		if *notificationsTopic == "" {
			logger.Fatal(errors.New("the -notifications queue is required with -observer sqs"))
		}
		notifier = pubsub.NewNotifier[statemachine.TableState](table.Name, notificationsBuffer)
		pub := pubsub.NewSqsPublisher(notifier.Events(), awsEndpoint)
		if pub == nil {
			logger.Fatal(errors.New("cannot create a valid SQS Publisher"))
		}
		pub.SetLogLevel(level)
		logger.Info("publishing transitions to SQS queue [%s]", *notificationsTopic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Publish(*notificationsTopic); err != nil {
				logger.Fatal(err)
			}
		}()
	case redisObserver:
		notifier = pubsub.NewNotifier[statemachine.TableState](table.Name, notificationsBuffer)
		pub := pubsub.NewRedisPublisher(notifier.Events(), *redisUrl, *timeout)
		pub.SetLogLevel(level)
		logger.Info("publishing transitions to Redis channel [%s] on %s", *redisChannel, *redisUrl)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Publish(*redisChannel); err != nil {
				logger.Fatal(err)
			}
		}()
	default:
		logger.Fatal(fmt.Errorf("unknown observer %q", *observerKind))
	}
	if notifier != nil {
		notifier.SetLogLevel(level)
		observer = notifier
	}

	machine, err := statemachine.NewTableMachine(table, statemachine.Retain(observer))
	if err != nil {
		logger.Fatal(err)
	}
	machine.SetLogLevel(level)

	requestAll(os.Stdout, table.Name, machine, targets)

	if notifier != nil {
		notifier.Close()
		logger.Debug("waiting for the publisher to exit...")
		wg.Wait()
	}
}

// lookupStates resolves every name to a state of the `table`, failing on the first unknown one.
func lookupStates(table *statemachine.Table, names []string) ([]statemachine.TableState, error) {
	targets := make([]statemachine.TableState, 0, len(names))
	for _, name := range names {
		s, err := table.State(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, s)
	}
	return targets, nil
}

// requestAll requests each of the `targets` in turn, reporting the outcome of each and
// the final state to `out`.
func requestAll(out io.Writer, name string, machine *statemachine.StateMachine[statemachine.TableState],
	targets []statemachine.TableState) {
	for _, to := range targets {
		from := machine.State()
		outcome := "rejected"
		if machine.RequestTransition(to) {
			outcome = "accepted"
		}
		fmt.Fprintf(out, "%s -> %s: %s\n", from, to, outcome)
	}
	fmt.Fprintf(out, "%s: %s\n", name, machine.State())
}

// logLevel maps -debug / -trace to a log level; if both are set, then -trace takes priority.
func logLevel(debug bool, trace bool) log.LogLevel {
	if trace {
		return log.TRACE
	}
	if debug {
		return log.DEBUG
	}
	return log.INFO
}
