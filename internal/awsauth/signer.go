package awsauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	algorithm     = "AWS4-HMAC-SHA256"
	amzDateFormat = "20060102T150405Z"
)

// Credentials holds the signing identity for one AWS account/region pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Request describes one API call to sign. The same canonical-request builder
// serves every service; per-service quirks are expressed through the signed
// header set and the content-hash placement.
type Request struct {
	Method string
	Host   string
	// Path must be the escaped request path, starting with "/".
	Path string
	// Query holds the canonical query parameters. Must be set (possibly
	// empty) so the canonical request always contains the query line.
	Query url.Values
	Body  []byte
	// Service is the credential-scope service name (s3, sqs, cloudfront).
	Service string
	// SignedHeaders are extra headers included in both the request and the
	// canonical signed set, keyed by lowercase name (content-md5,
	// content-type). Host and x-amz-date are always signed.
	SignedHeaders map[string]string
	// OmitContentHashHeader drops x-amz-content-sha256 from the request and
	// the signed set. Query-API services (SQS) sign only host and date; the
	// payload hash still terminates the canonical request.
	OmitContentHashHeader bool
	Time                  time.Time
}

// Sign produces the complete header set for the request: the payload hash,
// the request timestamp and the authorization header. Any mismatch between
// the headers actually sent and the signed set makes the receiving API
// reject the call, so callers must send these headers verbatim.
func (c Credentials) Sign(r Request) (http.Header, error) {
	if r.Host == "" || r.Service == "" {
		return nil, fmt.Errorf("awsauth: host and service are required")
	}
	if r.Path == "" {
		r.Path = "/"
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	amzDate := r.Time.UTC().Format(amzDateFormat)
	date := amzDate[:8]
	payloadHash := hashHex(r.Body)

	canonical, signedList := canonicalRequest(r, amzDate, payloadHash)

	scope := strings.Join([]string{date, c.Region, r.Service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		scope,
		hashHex([]byte(canonical)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(c.signingKey(date, r.Service), stringToSign))

	authorization := fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, c.AccessKeyID, scope, signedList, signature)

	h := http.Header{}
	h.Set("X-Amz-Date", amzDate)
	if !r.OmitContentHashHeader {
		h.Set("X-Amz-Content-Sha256", payloadHash)
	}
	for name, value := range r.SignedHeaders {
		h.Set(name, value)
	}
	h.Set("Authorization", authorization)
	return h, nil
}

// canonicalRequest builds the normalized string form of the request plus the
// semicolon-joined signed-header list.
func canonicalRequest(r Request, amzDate, payloadHash string) (string, string) {
	headers := map[string]string{
		"host":       r.Host,
		"x-amz-date": amzDate,
	}
	if !r.OmitContentHashHeader {
		headers["x-amz-content-sha256"] = payloadHash
	}
	for name, value := range r.SignedHeaders {
		headers[strings.ToLower(name)] = value
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var block strings.Builder
	for _, name := range names {
		block.WriteString(name)
		block.WriteString(":")
		block.WriteString(headers[name])
		block.WriteString("\n")
	}
	signedList := strings.Join(names, ";")

	canonical := strings.Join([]string{
		r.Method,
		r.Path,
		r.Query.Encode(),
		block.String(),
		signedList,
		payloadHash,
	}, "\n")
	return canonical, signedList
}

// signingKey derives the date-scoped key through the four-stage HMAC chain.
func (c Credentials) signingKey(date, service string) []byte {
	dateKey := hmacSHA256([]byte("AWS4"+c.SecretAccessKey), date)
	regionKey := hmacSHA256(dateKey, c.Region)
	serviceKey := hmacSHA256(regionKey, service)
	return hmacSHA256(serviceKey, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
