/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

package pubsub

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/golang/protobuf/proto"
	log "github.com/massenz/slf4go/logging"
	protos "github.com/massenz/statemachine-proto/golang/api"
)

type SqsPublisher struct {
	logger *log.Log
	client sqsiface.SQSAPI
	events <-chan *protos.Event
}

// NewSqsPublisher will create a new `Publisher` to send the transition events received on the
// `events` channel to an SQS queue.
//
// The `awsUrl` is the URL of the AWS SQS service, which can be obtained from the AWS Console,
// or by the local AWS CLI; leave it nil (or empty) to use the default endpoint.
func NewSqsPublisher(events <-chan *protos.Event, awsUrl *string) *SqsPublisher {
	client := getSqsClient(awsUrl)
	if client == nil {
		return nil
	}
	return NewSqsPublisherWithClient(events, client)
}

func NewSqsPublisherWithClient(events <-chan *protos.Event, client sqsiface.SQSAPI) *SqsPublisher {
	return &SqsPublisher{
		logger: log.NewLog("SQS-Pub"),
		client: client,
		events: events,
	}
}

// SetLogLevel allows the SqsPublisher to implement the log.Loggable interface
func (s *SqsPublisher) SetLogLevel(level log.LogLevel) {
	if s == nil {
		fmt.Println("WARN: attempting to set log level on nil Publisher")
		return
	}
	s.logger.Level = level
}

// Publish sends every event received on the channel to the `topic` queue, until the
// channel is closed. Events which cannot be sent are logged and dropped.
func (s *SqsPublisher) Publish(topic string) error {
	if s.client == nil {
		return ClosedClientError
	}
	queueUrl, err := GetQueueUrl(s.client, topic)
	if err != nil {
		return err
	}
	level := s.logger.Level
	s.logger = log.NewLog(fmt.Sprintf("SQS-Pub{%s}", topic))
	s.logger.Level = level
	s.logger.Info("SQS Publisher started for queue: %s", queueUrl)
	for event := range s.events {
		if event == nil {
			s.logger.Warn("skipping empty event")
			continue
		}
		delay := int64(0)
		s.logger.Debug("[%s] %s", event.EventId, queueUrl)
		input := &sqs.SendMessageInput{
			DelaySeconds: &delay,
			// Encodes the Event as a string, using Protobuf implementation.
			MessageBody: aws.String(proto.MarshalTextString(event)),
			QueueUrl:    &queueUrl,
		}
		// SQS rejects empty attribute values.
		if event.Originator != "" {
			input.MessageAttributes = map[string]*sqs.MessageAttributeValue{
				OriginatorAttribute: {
					DataType:    aws.String("String"),
					StringValue: aws.String(event.Originator),
				},
			}
		}
		msgResult, err := s.client.SendMessage(input)
		if err != nil {
			s.logger.Error("Cannot publish event (%s): %v", event.EventId, err)
			continue
		}
		s.logger.Debug("Notification successfully posted to SQS: %s", aws.StringValue(msgResult.MessageId))
	}
	s.logger.Info("SQS Publisher exiting")
	return nil
}
