/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

package pubsub_test

import (
	"time"

	. "github.com/JiaYongfei/respect/gomega"
	log "github.com/massenz/slf4go/logging"
	protos "github.com/massenz/statemachine-proto/golang/api"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/massenz/simple-statemachine/pubsub"
)

var _ = Describe("Redis Publisher", func() {
	var (
		client        *fakeRedis
		testPublisher *pubsub.RedisPublisher
		events        chan *protos.Event
		done          chan error
	)
	BeforeEach(func() {
		client = &fakeRedis{}
		events = make(chan *protos.Event)
		testPublisher = pubsub.NewRedisPublisherWithClient(events, client, 10*time.Millisecond)
		testPublisher.SetLogLevel(log.NONE)
		done = make(chan error)
		go func() {
			defer close(done)
			done <- testPublisher.Publish("transitions")
		}()
	})

	It("publishes events as JSON", func() {
		evt := pubsub.NewTransitionEvent("worker#2", "working", "done")
		events <- evt
		close(events)
		Eventually(done, timeout).Should(Receive(BeNil()))

		messages := client.Messages()
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Channel).To(Equal("transitions"))
		var received protos.Event
		Expect(protojson.Unmarshal(messages[0].Message, &received)).To(Succeed())
		Expect(&received).To(Respect(evt))
	})
	It("closes the client when done", func() {
		close(events)
		Eventually(done, timeout).Should(Receive(BeNil()))
		Expect(client.Closed()).To(BeTrue())
	})
	It("retries when Redis times out", func() {
		client.mux.Lock()
		client.stalls = 2
		client.mux.Unlock()
		events <- pubsub.NewTransitionEvent("worker#3", "ready", "working")
		close(events)
		Eventually(done, timeout).Should(Receive(BeNil()))
		Expect(client.Calls()).To(Equal(3))
		Expect(client.Messages()).To(HaveLen(1))
	})
	It("gives up after MaxRetries", func() {
		client.mux.Lock()
		client.stalls = pubsub.DefaultMaxRetries
		client.mux.Unlock()
		events <- pubsub.NewTransitionEvent("worker#4", "ready", "working")
		events <- pubsub.NewTransitionEvent("worker#4", "working", "done")
		close(events)
		Eventually(done, timeout).Should(Receive(BeNil()))
		Expect(client.Calls()).To(Equal(pubsub.DefaultMaxRetries + 1))
		Expect(client.Messages()).To(HaveLen(1))
	})
})
