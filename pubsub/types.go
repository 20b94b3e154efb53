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
	"time"

	"github.com/google/uuid"
	protos "github.com/massenz/statemachine-proto/golang/api"
	tspb "google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// TransitionEventName is the `Transition.Event` of every notification we publish.
	TransitionEventName = "transition"

	// OriginatorAttribute is the SQS message attribute carrying the `Originator`.
	OriginatorAttribute = "Originator"

	DefaultTimeout = 200 * time.Millisecond
)

var (
	MissingQueueError = fmt.Errorf("cannot find the SQS queue")
	ClosedClientError = fmt.Errorf("no client configured for the publisher")
)

// NewTransitionEvent creates the `Event` which describes a transition of the `origin` machine
// from `from` to `to`; states are rendered with `fmt`, so a `String()` method is honored.
func NewTransitionEvent(origin string, from, to any) *protos.Event {
	return &protos.Event{
		EventId:   uuid.NewString(),
		Timestamp: tspb.Now(),
		Transition: &protos.Transition{
			From:  fmt.Sprint(from),
			To:    fmt.Sprint(to),
			Event: TransitionEventName,
		},
		Originator: origin,
	}
}
