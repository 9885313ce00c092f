package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/port"
)

// S3Storage talks to the S3 REST API directly, signing every request with
// the in-house SigV4 signer. Buckets are addressed virtual-host style.
type S3Storage struct {
	client httpDoer
	creds  awsauth.Credentials
	// endpoint overrides the scheme+host of outgoing requests while signing
	// still targets the canonical bucket host. Tests point it at a local
	// server; production leaves it empty.
	endpoint string
}

// compile-time check: *S3Storage must satisfy port.Storage
var _ port.Storage = (*S3Storage)(nil)

func NewS3Storage(client httpDoer, creds awsauth.Credentials) *S3Storage {
	return &S3Storage{client: client, creds: creds}
}

// ObjectURL returns the public virtual-host URL for an object.
func ObjectURL(bucket, region, key string) string {
	return "https://" + bucketHost(bucket, region) + "/" + escapeKey(key)
}

func bucketHost(bucket, region string) string {
	return bucket + ".s3." + region + ".amazonaws.com"
}

// escapeKey escapes each path segment while preserving the separators, so
// the canonical request and the wire path stay identical.
func escapeKey(key string) string {
	if key == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func (s *S3Storage) CreateBucket(ctx context.Context, bucket string, preservePermissions bool) error {
	log.Printf("creating bucket %q...", bucket)

	_, err := s.do(ctx, http.MethodPut, bucket, "", url.Values{}, nil, "")
	if err != nil {
		apiErr, ok := awsauth.AsAPIError(err)
		if !ok || apiErr.Code != "BucketAlreadyOwnedByYou" {
			return err
		}
		log.Printf("bucket %q already exists and is owned by us", bucket)
	}

	if preservePermissions {
		return nil
	}

	// Permission sub-requests are best effort; a bucket that exists but
	// could not be opened up is still usable through the CDN.
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Sid":"PublicReadGetObject","Effect":"Allow","Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::%s/*"}]}`, bucket)
	if _, err := s.do(ctx, http.MethodPut, bucket, "", url.Values{"policy": {""}}, []byte(policy), "application/json"); err != nil {
		log.Printf("could not apply public-read policy on bucket %q: %v", bucket, err)
	}

	website := `<?xml version="1.0" encoding="UTF-8"?><WebsiteConfiguration xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><IndexDocument><Suffix>index.html</Suffix></IndexDocument><ErrorDocument><Key>error.html</Key></ErrorDocument></WebsiteConfiguration>`
	if _, err := s.do(ctx, http.MethodPut, bucket, "", url.Values{"website": {""}}, []byte(website), "application/xml"); err != nil {
		log.Printf("could not configure static hosting on bucket %q: %v", bucket, err)
	}

	cors := `<?xml version="1.0" encoding="UTF-8"?><CORSConfiguration xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><CORSRule><AllowedOrigin>*</AllowedOrigin><AllowedMethod>GET</AllowedMethod><AllowedMethod>HEAD</AllowedMethod><AllowedHeader>*</AllowedHeader><MaxAgeSeconds>3000</MaxAgeSeconds></CORSRule></CORSConfiguration>`
	if _, err := s.do(ctx, http.MethodPut, bucket, "", url.Values{"cors": {""}}, []byte(cors), "application/xml"); err != nil {
		log.Printf("could not apply CORS rules on bucket %q: %v", bucket, err)
	}

	return nil
}

func (s *S3Storage) DeleteBucket(ctx context.Context, bucket string) error {
	log.Printf("deleting bucket %q...", bucket)

	_, err := s.do(ctx, http.MethodDelete, bucket, "", url.Values{}, nil, "")
	return err
}

func (s *S3Storage) Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	log.Printf("uploading %q into bucket %q...", key, bucket)

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.do(ctx, http.MethodPut, bucket, key, url.Values{}, body, contentType); err != nil {
		return "", err
	}
	return ObjectURL(bucket, s.creds.Region, key), nil
}

func (s *S3Storage) Download(ctx context.Context, bucket, key, localPath string) (int64, error) {
	log.Printf("downloading %q from bucket %q...", key, bucket)

	body, err := s.do(ctx, http.MethodGet, bucket, key, url.Values{}, nil, "")
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, fmt.Errorf("could not create directory for %q: %w", localPath, err)
	}
	if err := os.WriteFile(localPath, body, 0o644); err != nil {
		return 0, fmt.Errorf("could not write file %q: %w", localPath, err)
	}
	return int64(len(body)), nil
}

func (s *S3Storage) Delete(ctx context.Context, bucket, key string) error {
	log.Printf("removing %q from bucket %q...", key, bucket)

	_, err := s.do(ctx, http.MethodDelete, bucket, key, url.Values{}, nil, "")
	return err
}

type listBucketResult struct {
	Contents []struct {
		Key string `xml:"Key"`
	} `xml:"Contents"`
	NextContinuationToken string `xml:"NextContinuationToken"`
}

func (s *S3Storage) ListObjects(ctx context.Context, bucket, continuationToken string) ([]string, string, error) {
	log.Printf("listing objects in bucket %q...", bucket)

	query := url.Values{"list-type": {"2"}}
	if continuationToken != "" {
		query.Set("continuation-token", continuationToken)
	}

	body, err := s.do(ctx, http.MethodGet, bucket, "", query, nil, "")
	if err != nil {
		return nil, "", err
	}

	var result listBucketResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, "", fmt.Errorf("could not parse listing for bucket %q: %w", bucket, err)
	}

	keys := make([]string, 0, len(result.Contents))
	for _, object := range result.Contents {
		keys = append(keys, object.Key)
	}
	return keys, result.NextContinuationToken, nil
}

// do signs and executes one S3 request and returns the response body.
// Non-empty PUT bodies additionally sign content-md5 and content-type, the
// way S3 expects object writes to be authenticated.
func (s *S3Storage) do(ctx context.Context, method, bucket, key string, query url.Values, body []byte, contentType string) ([]byte, error) {
	host := bucketHost(bucket, s.creds.Region)
	path := "/" + escapeKey(key)

	signReq := awsauth.Request{
		Method:  method,
		Host:    host,
		Path:    path,
		Query:   query,
		Body:    body,
		Service: "s3",
	}
	if method == http.MethodPut && len(body) > 0 {
		sum := md5.Sum(body)
		signReq.SignedHeaders = map[string]string{
			"content-md5":  base64.StdEncoding.EncodeToString(sum[:]),
			"content-type": contentType,
		}
	}
	headers, err := s.creds.Sign(signReq)
	if err != nil {
		return nil, err
	}

	base := "https://" + host
	if s.endpoint != "" {
		base = s.endpoint
	}
	reqURL := base + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Host = host
	for name := range headers {
		req.Header.Set(name, headers.Get(name))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s3 request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read s3 response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, awsauth.ParseAPIError("s3", resp.StatusCode, respBody)
	}
	return respBody, nil
}
