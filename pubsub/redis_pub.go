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
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/massenz/slf4go/logging"
	protos "github.com/massenz/statemachine-proto/golang/api"
	"google.golang.org/protobuf/encoding/protojson"
)

const DefaultMaxRetries = 3

// RedisClient is the subset of the go-redis client used by the RedisPublisher.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher PUBLISHes the JSON encoding of every event it receives to a Redis channel.
type RedisPublisher struct {
	logger     *log.Log
	client     RedisClient
	events     <-chan *protos.Event
	Timeout    time.Duration
	MaxRetries int
}

// NewRedisPublisher connects to the Redis server at `address` (host:port); set the REDIS_TLS
// env var to use TLS.
func NewRedisPublisher(events <-chan *protos.Event, address string, timeout time.Duration) *RedisPublisher {
	var tlsConfig *tls.Config
	if os.Getenv("REDIS_TLS") != "" {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	p := NewRedisPublisherWithClient(events, redis.NewClient(&redis.Options{
		TLSConfig: tlsConfig,
		Addr:      address,
	}), timeout)
	p.logger = log.NewLog(fmt.Sprintf("Redis-Pub{%s}", address))
	if tlsConfig != nil {
		p.logger.Info("Using TLS for Redis connection")
	}
	return p
}

func NewRedisPublisherWithClient(events <-chan *protos.Event, client RedisClient,
	timeout time.Duration) *RedisPublisher {
	return &RedisPublisher{
		logger:     log.NewLog("Redis-Pub"),
		client:     client,
		events:     events,
		Timeout:    timeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// SetLogLevel for RedisPublisher implements the Loggable interface
func (p *RedisPublisher) SetLogLevel(level log.LogLevel) {
	p.logger.Level = level
}

// Publish sends every event received on the channel to the Redis `channel`, until the events
// channel is closed; then it closes the connection to Redis.
func (p *RedisPublisher) Publish(channel string) error {
	if p.client == nil {
		return ClosedClientError
	}
	defer p.client.Close()
	p.logger.Info("Redis Publisher started for channel: %s", channel)
	for event := range p.events {
		if event == nil {
			p.logger.Warn("skipping empty event")
			continue
		}
		if err := p.publish(channel, event); err != nil {
			p.logger.Error("Cannot publish event (%s): %v", event.EventId, err)
		}
	}
	p.logger.Info("Redis Publisher exiting")
	return nil
}

// publish retries a timed-out PUBLISH up to MaxRetries times; any other error is returned
// immediately.
func (p *RedisPublisher) publish(channel string, event *protos.Event) error {
	data, err := protojson.Marshal(event)
	if err != nil {
		return err
	}
	attemptsLeft := p.MaxRetries
	for {
		attemptsLeft--
		ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
		receivers, err := p.client.Publish(ctx, channel, data).Result()
		cancel()
		if err == nil {
			p.logger.Debug("[%s] published to %d subscribers", event.EventId, receivers)
			return nil
		}
		if ctx.Err() != context.DeadlineExceeded || attemptsLeft <= 0 {
			return err
		}
		p.logger.Warn("timed out publishing %s, retrying (%d attempts left)", event.EventId, attemptsLeft)
	}
}
