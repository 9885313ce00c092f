package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/model"
)

func testCreds() awsauth.Credentials {
	return awsauth.Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "eu-west-3",
	}
}

func newTestQueue(t *testing.T, response string) (*SQSQueue, *url.Values, *http.Header, *httptest.Server) {
	t.Helper()
	var (
		gotForm    url.Values
		gotHeaders http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil {
			t.Errorf("could not parse form body: %v", err)
		}
		gotForm = form
		gotHeaders = r.Header.Clone()
		_, _ = w.Write([]byte(response))
	}))
	q := NewSQSQueue(srv.Client(), testCreds(), 1)
	q.endpoint = srv.URL
	return q, &gotForm, &gotHeaders, srv
}

func TestCreateQueue(t *testing.T) {
	q, form, headers, srv := newTestQueue(t, `<?xml version="1.0"?>
<CreateQueueResponse>
	<CreateQueueResult><QueueUrl>https://sqs.eu-west-3.amazonaws.com/123456789012/my-site-abcd1234</QueueUrl></CreateQueueResult>
</CreateQueueResponse>`)
	defer srv.Close()

	queueURL, err := q.CreateQueue(context.Background(), "my-site-abcd1234")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if queueURL != "https://sqs.eu-west-3.amazonaws.com/123456789012/my-site-abcd1234" {
		t.Errorf("unexpected queue URL %q", queueURL)
	}
	if form.Get("Action") != "CreateQueue" || form.Get("Version") != "2012-11-05" {
		t.Errorf("unexpected action params %v", *form)
	}
	if form.Get("QueueName") != "my-site-abcd1234" {
		t.Errorf("unexpected queue name %q", form.Get("QueueName"))
	}
	attrs := map[string]string{}
	for i := 1; i <= 3; i++ {
		prefix := fmt.Sprintf("Attribute.%d", i)
		attrs[form.Get(prefix+".Name")] = form.Get(prefix + ".Value")
	}
	if attrs["VisibilityTimeout"] != "300" || attrs["MessageRetentionPeriod"] != "1209600" || attrs["ReceiveMessageWaitTimeSeconds"] != "20" {
		t.Errorf("unexpected queue attributes %v", attrs)
	}

	auth := headers.Get("Authorization")
	if !strings.Contains(auth, "SignedHeaders=host;x-amz-date,") {
		t.Errorf("unexpected signed header set in %q", auth)
	}
	if headers.Get("X-Amz-Content-Sha256") != "" {
		t.Error("query-API requests must not carry a content hash header")
	}
	if headers.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", headers.Get("Content-Type"))
	}
}

func TestSendMessage(t *testing.T) {
	q, form, _, srv := newTestQueue(t, `<?xml version="1.0"?>
<SendMessageResponse>
	<SendMessageResult><MessageId>msg-123</MessageId></SendMessageResult>
</SendMessageResponse>`)
	defer srv.Close()

	msg := model.TransferMessage{
		Operation: "upload",
		JobID:     42,
		SubjectID: 7,
		FilePath:  "2026/08/photo.jpg",
		Timestamp: 1756630800,
	}
	id, err := q.Send(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/q", msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if id != "msg-123" {
		t.Errorf("unexpected message id %q", id)
	}
	if form.Get("QueueUrl") != "https://sqs.eu-west-3.amazonaws.com/123/q" {
		t.Errorf("unexpected queue url %q", form.Get("QueueUrl"))
	}
	var decoded model.TransferMessage
	if err := json.Unmarshal([]byte(form.Get("MessageBody")), &decoded); err != nil {
		t.Fatalf("message body is not valid JSON: %v", err)
	}
	if decoded != msg {
		t.Errorf("expected message %+v, got %+v", msg, decoded)
	}
	if form.Get("MessageAttribute.1.Name") != "Operation" ||
		form.Get("MessageAttribute.1.Value.StringValue") != "upload" ||
		form.Get("MessageAttribute.1.Value.DataType") != "String" {
		t.Errorf("unexpected message attributes %v", *form)
	}
}

func TestReceiveMessages(t *testing.T) {
	q, form, _, srv := newTestQueue(t, `<?xml version="1.0"?>
<ReceiveMessageResponse>
	<ReceiveMessageResult>
		<Message>
			<MessageId>msg-1</MessageId>
			<ReceiptHandle>rh-1</ReceiptHandle>
			<Body>{"operation":"upload","log_id":1}</Body>
		</Message>
		<Message>
			<MessageId>msg-2</MessageId>
			<ReceiptHandle>rh-2</ReceiptHandle>
			<Body>{"operation":"download","log_id":2}</Body>
		</Message>
	</ReceiveMessageResult>
</ReceiveMessageResponse>`)
	defer srv.Close()

	messages, err := q.Receive(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/q", 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if form.Get("MaxNumberOfMessages") != "10" {
		t.Errorf("expected the batch size to be capped at 10, got %q", form.Get("MaxNumberOfMessages"))
	}
	if form.Get("WaitTimeSeconds") != "1" {
		t.Errorf("unexpected wait time %q", form.Get("WaitTimeSeconds"))
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "msg-1" || messages[0].ReceiptHandle != "rh-1" || messages[0].Body != `{"operation":"upload","log_id":1}` {
		t.Errorf("unexpected first message %+v", messages[0])
	}
	if messages[1].ID != "msg-2" || messages[1].ReceiptHandle != "rh-2" {
		t.Errorf("unexpected second message %+v", messages[1])
	}
}

func TestReceiveEmptyQueue(t *testing.T) {
	q, _, _, srv := newTestQueue(t, `<?xml version="1.0"?>
<ReceiveMessageResponse><ReceiveMessageResult></ReceiveMessageResult></ReceiveMessageResponse>`)
	defer srv.Close()

	messages, err := q.Receive(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/q", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %d", len(messages))
	}
}

func TestDeleteMessage(t *testing.T) {
	q, form, _, srv := newTestQueue(t, `<?xml version="1.0"?><DeleteMessageResponse></DeleteMessageResponse>`)
	defer srv.Close()

	if err := q.DeleteMessage(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/q", "rh-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.Get("Action") != "DeleteMessage" || form.Get("ReceiptHandle") != "rh-1" {
		t.Errorf("unexpected params %v", *form)
	}
}

func TestDeleteQueue(t *testing.T) {
	q, form, _, srv := newTestQueue(t, `<?xml version="1.0"?><DeleteQueueResponse></DeleteQueueResponse>`)
	defer srv.Close()

	if err := q.DeleteQueue(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/q"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.Get("Action") != "DeleteQueue" || form.Get("QueueUrl") != "https://sqs.eu-west-3.amazonaws.com/123/q" {
		t.Errorf("unexpected params %v", *form)
	}
}

func TestSQSAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<ErrorResponse><Error><Code>AWS.SimpleQueueService.NonExistentQueue</Code><Message>The specified queue does not exist.</Message></Error></ErrorResponse>`))
	}))
	defer srv.Close()
	q := NewSQSQueue(srv.Client(), testCreds(), 1)
	q.endpoint = srv.URL

	_, err := q.Receive(context.Background(), "https://sqs.eu-west-3.amazonaws.com/123/gone", 10)
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := awsauth.AsAPIError(err)
	if !ok {
		t.Fatalf("expected an API error, got %v", err)
	}
	if apiErr.Code != "AWS.SimpleQueueService.NonExistentQueue" {
		t.Errorf("unexpected error code %q", apiErr.Code)
	}
}
