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
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// getSqsClient connects to AWS SQS using the shared configuration; if `awsEndpointUrl` is
// given (e.g., LocalStack at http://localhost:4566) the region must be set in AWS_REGION.
func getSqsClient(awsEndpointUrl *string) sqsiface.SQSAPI {
	var sess *session.Session
	if awsEndpointUrl == nil || *awsEndpointUrl == "" {
		sess = session.Must(session.NewSessionWithOptions(session.Options{
			SharedConfigState: session.SharedConfigEnable,
		}))
	} else {
		region, found := os.LookupEnv("AWS_REGION")
		if !found {
			fmt.Printf("No AWS Region configured, cannot connect to SQS provider at %s\n",
				*awsEndpointUrl)
			return nil
		}
		sess = session.Must(session.NewSessionWithOptions(session.Options{
			SharedConfigState: session.SharedConfigEnable,
			Config: aws.Config{
				Endpoint: awsEndpointUrl,
				Region:   &region,
			},
		}))
	}
	return sqs.New(sess)
}

// GetQueueUrl retrieves from AWS SQS the URL for the queue, given the topic name
func GetQueueUrl(client sqsiface.SQSAPI, topic string) (string, error) {
	out, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: &topic,
	})
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", MissingQueueError, topic, err)
	}
	if out.QueueUrl == nil {
		return "", fmt.Errorf("%w %s", MissingQueueError, topic)
	}
	return *out.QueueUrl, nil
}
