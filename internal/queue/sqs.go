package queue

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const apiVersion = "2012-11-05"

// Queue attributes applied at creation time: five minutes of visibility
// while a transfer runs, fourteen days of retention, and long polling.
const (
	visibilityTimeoutSeconds = "300"
	retentionPeriodSeconds   = "1209600"
	longPollWaitSeconds      = "20"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SQSQueue drives the SQS query API over signed form-encoded POSTs. The
// query API signs only host and x-amz-date; the payload hash in the
// canonical request covers the form body.
type SQSQueue struct {
	client httpDoer
	creds  awsauth.Credentials
	// waitSeconds bounds how long one Receive call long-polls.
	waitSeconds int
	// endpoint overrides the scheme+host of outgoing requests while signing
	// still targets the canonical regional host. Tests point it at a local
	// server; production leaves it empty.
	endpoint string
}

// compile-time check: *SQSQueue must satisfy port.Queue
var _ port.Queue = (*SQSQueue)(nil)

func NewSQSQueue(client httpDoer, creds awsauth.Credentials, waitSeconds int) *SQSQueue {
	if waitSeconds < 0 {
		waitSeconds = 0
	}
	return &SQSQueue{client: client, creds: creds, waitSeconds: waitSeconds}
}

type createQueueResponse struct {
	Result struct {
		QueueURL string `xml:"QueueUrl"`
	} `xml:"CreateQueueResult"`
}

func (q *SQSQueue) CreateQueue(ctx context.Context, name string) (string, error) {
	log.Printf("creating queue %q...", name)

	body, err := q.do(ctx, url.Values{
		"Action":            {"CreateQueue"},
		"QueueName":         {name},
		"Attribute.1.Name":  {"VisibilityTimeout"},
		"Attribute.1.Value": {visibilityTimeoutSeconds},
		"Attribute.2.Name":  {"MessageRetentionPeriod"},
		"Attribute.2.Value": {retentionPeriodSeconds},
		"Attribute.3.Name":  {"ReceiveMessageWaitTimeSeconds"},
		"Attribute.3.Value": {longPollWaitSeconds},
	})
	if err != nil {
		return "", err
	}

	var resp createQueueResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not parse CreateQueue response: %w", err)
	}
	if resp.Result.QueueURL == "" {
		return "", fmt.Errorf("CreateQueue response carried no queue URL")
	}
	return resp.Result.QueueURL, nil
}

func (q *SQSQueue) DeleteQueue(ctx context.Context, queueURL string) error {
	log.Printf("deleting queue %q...", queueURL)

	_, err := q.do(ctx, url.Values{
		"Action":   {"DeleteQueue"},
		"QueueUrl": {queueURL},
	})
	return err
}

type sendMessageResponse struct {
	Result struct {
		MessageID string `xml:"MessageId"`
	} `xml:"SendMessageResult"`
}

func (q *SQSQueue) Send(ctx context.Context, queueURL string, msg model.TransferMessage) (string, error) {
	log.Printf("sending %q message for job #%d...", msg.Operation, msg.JobID)

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("could not encode queue message: %w", err)
	}

	body, err := q.do(ctx, url.Values{
		"Action":                               {"SendMessage"},
		"QueueUrl":                             {queueURL},
		"MessageBody":                          {string(payload)},
		"MessageAttribute.1.Name":              {"Operation"},
		"MessageAttribute.1.Value.StringValue": {string(msg.Operation)},
		"MessageAttribute.1.Value.DataType":    {"String"},
	})
	if err != nil {
		return "", err
	}

	var resp sendMessageResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not parse SendMessage response: %w", err)
	}
	return resp.Result.MessageID, nil
}

type receiveMessageResponse struct {
	Result struct {
		Messages []struct {
			MessageID     string `xml:"MessageId"`
			ReceiptHandle string `xml:"ReceiptHandle"`
			Body          string `xml:"Body"`
		} `xml:"Message"`
	} `xml:"ReceiveMessageResult"`
}

func (q *SQSQueue) Receive(ctx context.Context, queueURL string, maxMessages int) ([]port.QueueMessage, error) {
	// SQS caps one receive at ten messages.
	if maxMessages < 1 || maxMessages > 10 {
		maxMessages = 10
	}

	body, err := q.do(ctx, url.Values{
		"Action":              {"ReceiveMessage"},
		"QueueUrl":            {queueURL},
		"AttributeName.1":     {"All"},
		"MaxNumberOfMessages": {strconv.Itoa(maxMessages)},
		"WaitTimeSeconds":     {strconv.Itoa(q.waitSeconds)},
	})
	if err != nil {
		return nil, err
	}

	var resp receiveMessageResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not parse ReceiveMessage response: %w", err)
	}

	messages := make([]port.QueueMessage, 0, len(resp.Result.Messages))
	for _, m := range resp.Result.Messages {
		messages = append(messages, port.QueueMessage{
			ID:            m.MessageID,
			ReceiptHandle: m.ReceiptHandle,
			Body:          m.Body,
		})
	}
	return messages, nil
}

func (q *SQSQueue) DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := q.do(ctx, url.Values{
		"Action":        {"DeleteMessage"},
		"QueueUrl":      {queueURL},
		"ReceiptHandle": {receiptHandle},
	})
	return err
}

// do signs and executes one query-API call against the regional endpoint.
func (q *SQSQueue) do(ctx context.Context, params url.Values) ([]byte, error) {
	host := "sqs." + q.creds.Region + ".amazonaws.com"
	params.Set("Version", apiVersion)
	form := params.Encode()

	headers, err := q.creds.Sign(awsauth.Request{
		Method:                http.MethodPost,
		Host:                  host,
		Path:                  "/",
		Query:                 url.Values{},
		Body:                  []byte(form),
		Service:               "sqs",
		OmitContentHashHeader: true,
	})
	if err != nil {
		return nil, err
	}

	base := "https://" + host
	if q.endpoint != "" {
		base = q.endpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/", strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	req.Host = host
	for name := range headers {
		req.Header.Set(name, headers.Get(name))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sqs request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read sqs response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, awsauth.ParseAPIError("sqs", resp.StatusCode, respBody)
	}
	return respBody, nil
}
