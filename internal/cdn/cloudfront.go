package cdn

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/featherlift/featherlift-go/internal/awsauth"
	"github.com/featherlift/featherlift-go/internal/port"
)

const (
	cloudfrontHost = "cloudfront.amazonaws.com"
	apiVersion     = "2020-05-31"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CloudFrontCDN manages the distribution fronting the media bucket through
// the CloudFront REST API.
type CloudFrontCDN struct {
	client httpDoer
	creds  awsauth.Credentials
	// endpoint overrides the scheme+host of outgoing requests while signing
	// still targets cloudfront.amazonaws.com. Tests point it at a local
	// server; production leaves it empty.
	endpoint string
}

// compile-time check: *CloudFrontCDN must satisfy port.CDN
var _ port.CDN = (*CloudFrontCDN)(nil)

func NewCloudFrontCDN(client httpDoer, creds awsauth.Credentials) *CloudFrontCDN {
	return &CloudFrontCDN{client: client, creds: creds}
}

type distributionResponse struct {
	ID         string `xml:"Id"`
	Status     string `xml:"Status"`
	DomainName string `xml:"DomainName"`
}

func (c *CloudFrontCDN) CreateDistribution(ctx context.Context, bucket string) (*port.Distribution, error) {
	originDomain := bucket + ".s3." + c.creds.Region + ".amazonaws.com"
	log.Printf("creating distribution for origin %q...", originDomain)

	config := distributionConfigXML(uuid.NewString(), "S3-"+bucket, originDomain, true)

	body, _, err := c.do(ctx, http.MethodPost, "/distribution", []byte(config), "")
	if err != nil {
		return nil, err
	}

	var resp distributionResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not parse distribution response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("distribution was not created: response carried no id")
	}
	return &port.Distribution{ID: resp.ID, Domain: resp.DomainName, Status: resp.Status}, nil
}

// DeleteDistribution disables an enabled distribution and reports
// deleted=false; the provider needs to propagate the disable before the
// actual delete can succeed, so the caller retries later. An already
// disabled distribution is deleted outright.
func (c *CloudFrontCDN) DeleteDistribution(ctx context.Context, distributionID string) (bool, error) {
	log.Printf("deleting distribution %q...", distributionID)

	configBody, etag, err := c.do(ctx, http.MethodGet, "/distribution/"+distributionID+"/config", nil, "")
	if err != nil {
		return false, err
	}
	if etag == "" {
		return false, fmt.Errorf("could not determine the distribution ETag")
	}

	if strings.Contains(string(configBody), "<Enabled>true</Enabled>") {
		disabled := strings.Replace(string(configBody), "<Enabled>true</Enabled>", "<Enabled>false</Enabled>", 1)
		if _, _, err := c.do(ctx, http.MethodPut, "/distribution/"+distributionID+"/config", []byte(disabled), etag); err != nil {
			return false, err
		}
		log.Printf("distribution %q was still enabled; disabled it, deletion must be retried after propagation", distributionID)
		return false, nil
	}

	if _, _, err := c.do(ctx, http.MethodDelete, "/distribution/"+distributionID, nil, etag); err != nil {
		return false, err
	}
	return true, nil
}

// distributionConfigXML renders the distribution config: a single S3 origin,
// HTTPS redirection and default TTLs, no trusted signers.
func distributionConfigXML(callerReference, originID, originDomain string, enabled bool) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<DistributionConfig xmlns="http://cloudfront.amazonaws.com/doc/` + apiVersion + `/">`)
	b.WriteString(`<CallerReference>` + callerReference + `</CallerReference>`)
	b.WriteString(`<Comment>Featherlift media distribution</Comment>`)
	b.WriteString(fmt.Sprintf(`<Enabled>%t</Enabled>`, enabled))
	b.WriteString(`<Origins><Quantity>1</Quantity><Items><member>`)
	b.WriteString(`<Id>` + originID + `</Id>`)
	b.WriteString(`<DomainName>` + originDomain + `</DomainName>`)
	b.WriteString(`<S3OriginConfig><OriginAccessIdentity></OriginAccessIdentity></S3OriginConfig>`)
	b.WriteString(`</member></Items></Origins>`)
	b.WriteString(`<DefaultCacheBehavior>`)
	b.WriteString(`<TargetOriginId>` + originID + `</TargetOriginId>`)
	b.WriteString(`<ViewerProtocolPolicy>redirect-to-https</ViewerProtocolPolicy>`)
	b.WriteString(`<MinTTL>0</MinTTL><DefaultTTL>86400</DefaultTTL><MaxTTL>31536000</MaxTTL>`)
	b.WriteString(`<ForwardedValues><QueryString>false</QueryString><Cookies><Forward>none</Forward></Cookies></ForwardedValues>`)
	b.WriteString(`<TrustedSigners><Enabled>false</Enabled><Quantity>0</Quantity></TrustedSigners>`)
	b.WriteString(`</DefaultCacheBehavior>`)
	b.WriteString(`</DistributionConfig>`)
	return b.String()
}

// do signs and executes one API call. The signed set is always
// host;x-amz-content-sha256;x-amz-date; the If-Match precondition travels
// unsigned. Returns the response body and its ETag header.
func (c *CloudFrontCDN) do(ctx context.Context, method, resource string, body []byte, ifMatch string) ([]byte, string, error) {
	path := "/" + apiVersion + resource

	headers, err := c.creds.Sign(awsauth.Request{
		Method:  method,
		Host:    cloudfrontHost,
		Path:    path,
		Query:   url.Values{},
		Body:    body,
		Service: "cloudfront",
	})
	if err != nil {
		return nil, "", err
	}

	base := "https://" + cloudfrontHost
	if c.endpoint != "" {
		base = c.endpoint
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, "", err
	}
	req.Host = cloudfrontHost
	for name := range headers {
		req.Header.Set(name, headers.Get(name))
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/xml")
	}
	if ifMatch != "" {
		req.Header.Set("If-Match", ifMatch)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("cloudfront request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("could not read cloudfront response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", awsauth.ParseAPIError("cloudfront", resp.StatusCode, respBody)
	}
	return respBody, resp.Header.Get("ETag"), nil
}
