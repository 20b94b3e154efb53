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
	"fmt"

	. "github.com/JiaYongfei/respect/gomega"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/golang/protobuf/proto"
	log "github.com/massenz/slf4go/logging"
	protos "github.com/massenz/statemachine-proto/golang/api"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/massenz/simple-statemachine/pubsub"
)

var _ = Describe("SQS Publisher", func() {

	Context("when correctly initialized", func() {
		var (
			client        *fakeSqs
			testPublisher *pubsub.SqsPublisher
			events        chan *protos.Event
			done          chan error
		)
		BeforeEach(func() {
			client = &fakeSqs{}
			events = make(chan *protos.Event)
			testPublisher = pubsub.NewSqsPublisherWithClient(events, client)
			Expect(testPublisher).ToNot(BeNil())
			// Set to DEBUG when diagnosing test failures
			testPublisher.SetLogLevel(log.NONE)
			done = make(chan error)
			go func() {
				defer close(done)
				done <- testPublisher.Publish(notificationsQueue)
			}()
		})
		It("can publish transition events", func() {
			evt := pubsub.NewTransitionEvent("worker#1", "ready", "working")
			events <- evt
			close(events)
			Eventually(done, timeout).Should(Receive(BeNil()))

			sent := client.Sent()
			Expect(sent).To(HaveLen(1))
			var received protos.Event
			Expect(proto.UnmarshalText(aws.StringValue(sent[0].MessageBody), &received)).To(Succeed())
			Expect(&received).To(Respect(evt))
			Expect(aws.StringValue(sent[0].QueueUrl)).To(HaveSuffix(notificationsQueue))
			Expect(aws.StringValue(
				sent[0].MessageAttributes[pubsub.OriginatorAttribute].StringValue)).To(Equal("worker#1"))
		})
		It("will terminate gracefully when the events channel is closed", func() {
			close(events)
			Eventually(done, timeout).Should(Receive(BeNil()))
			Expect(client.Sent()).To(BeEmpty())
		})
		It("will survive an empty event", func() {
			events <- nil
			events <- &protos.Event{EventId: "no-origin"}
			close(events)
			Eventually(done, timeout).Should(Receive(BeNil()))
			Expect(client.Sent()).To(HaveLen(1))
			Expect(client.Sent()[0].MessageAttributes).To(BeEmpty())
		})
		It("will keep going after a failure", func() {
			client.mux.Lock()
			client.failures = 1
			client.mux.Unlock()
			for i := range [10]int{} {
				events <- pubsub.NewTransitionEvent(fmt.Sprintf("dest-%d", i), "a", "b")
			}
			close(events)
			Eventually(done, timeout).Should(Receive(BeNil()))
			Expect(client.Sent()).To(HaveLen(9))
		})
	})

	Context("when the queue does not exist", func() {
		It("fails immediately", func() {
			events := make(chan *protos.Event)
			testPublisher := pubsub.NewSqsPublisherWithClient(events, &fakeSqs{})
			testPublisher.SetLogLevel(log.NONE)
			Expect(testPublisher.Publish("no-such-queue")).To(MatchError(pubsub.MissingQueueError))
		})
	})
})
