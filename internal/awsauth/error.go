package awsauth

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// APIError is a rejection returned by an AWS endpoint, as opposed to a
// transport failure. Callers can branch on Code to treat idempotent
// conflicts (BucketAlreadyOwnedByYou, QueueAlreadyExists) as success.
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (http %d): %s", e.Service, e.Code, e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an APIError when the failure came from the
// provider rather than the transport.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type xmlError struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

type xmlErrorResponse struct {
	Error xmlError `xml:"Error"`
}

// ParseAPIError decodes an error body into an APIError. S3 and CloudFront
// answer with a bare <Error> document, SQS wraps it in <ErrorResponse>;
// both shapes are handled. A body that is not XML still yields an APIError
// carrying the status code.
func ParseAPIError(service string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{Service: service, StatusCode: statusCode}

	var bare xmlError
	if err := xml.Unmarshal(body, &bare); err == nil && bare.Code != "" {
		apiErr.Code = bare.Code
		apiErr.Message = bare.Message
		return apiErr
	}
	var wrapped xmlErrorResponse
	if err := xml.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Code != "" {
		apiErr.Code = wrapped.Error.Code
		apiErr.Message = wrapped.Error.Message
		return apiErr
	}

	apiErr.Message = string(body)
	return apiErr
}
