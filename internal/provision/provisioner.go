package provision

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const fallbackName = "featherlift-media"

// Bucket naming strategies. The first-file strategy derives the base from the
// oldest attachment's file name and falls back to the site name while the
// library is still empty.
const (
	StrategyFirstFile = "file"
	StrategySiteName  = "site"
)

var ErrInvalidBucketName = errors.New("provision: bucket name must be between 3 and 63 characters")

// Config carries the site identity the resource names derive from.
type Config struct {
	SiteName string
	SiteURL  string
	// NamingStrategy selects the bucket base name source; StrategyFirstFile
	// when unset.
	NamingStrategy string
	// CustomBucketName bypasses name generation; it is sanitised and length
	// checked but used as-is, without a suffix.
	CustomBucketName          string
	PreserveBucketPermissions bool
	UseCloudFront             bool
}

type provisionerSrv struct {
	stacks port.StackRepository
	strg   port.Storage
	queue  port.Queue
	cdn    port.CDN
	lib    port.AttachmentNamer
	cfg    Config
}

func NewProvisioner(stacks port.StackRepository, strg port.Storage, queue port.Queue, cdn port.CDN, lib port.AttachmentNamer, cfg Config) port.StackProvisioner {
	return &provisionerSrv{stacks, strg, queue, cdn, lib, cfg}
}

// EnsureStack is idempotent: each sub-step only runs when its descriptor
// field is still empty, and partial progress is persisted immediately so a
// later failure never orphans an already created resource. A bucket name,
// once assigned, is never regenerated.
func (p *provisionerSrv) EnsureStack(ctx context.Context) (*model.StackDescriptor, error) {
	stack, err := p.stacks.GetStack(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed loading stack descriptor: %w", err)
	}
	if stack == nil {
		stack = &model.StackDescriptor{}
	}

	if stack.BucketName == "" {
		name, err := p.bucketName(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.strg.CreateBucket(ctx, name, p.cfg.PreserveBucketPermissions); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", name, err)
		}
		stack.BucketName = name
		if err := p.stacks.SaveStack(ctx, stack); err != nil {
			return nil, fmt.Errorf("failed persisting bucket name: %w", err)
		}
	}

	if stack.QueueURL == "" {
		queueURL, err := p.queue.CreateQueue(ctx, p.queueName())
		if err != nil {
			return nil, fmt.Errorf("failed to create queue: %w", err)
		}
		stack.QueueURL = queueURL
		if err := p.stacks.SaveStack(ctx, stack); err != nil {
			return nil, fmt.Errorf("failed persisting queue URL: %w", err)
		}
	}

	if p.cfg.UseCloudFront && stack.CDNDomain == "" {
		dist, err := p.cdn.CreateDistribution(ctx, stack.BucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to create distribution: %w", err)
		}
		stack.CDNDomain = dist.Domain
		stack.CDNDistributionID = dist.ID
		if err := p.stacks.SaveStack(ctx, stack); err != nil {
			return nil, fmt.Errorf("failed persisting distribution: %w", err)
		}
	}

	return stack, nil
}

func (p *provisionerSrv) bucketName(ctx context.Context) (string, error) {
	if p.cfg.CustomBucketName != "" {
		name := stripInvalid(strings.ToLower(p.cfg.CustomBucketName))
		if len(name) < 3 || len(name) > 63 {
			return "", ErrInvalidBucketName
		}
		return name, nil
	}

	var base string
	if p.cfg.NamingStrategy != StrategySiteName {
		name, err := p.lib.FirstAttachmentFilename(ctx)
		if err != nil {
			return "", fmt.Errorf("failed reading the first attachment name: %w", err)
		}
		base = slugify(name)
	}
	if base == "" {
		base = slugify(p.cfg.SiteName)
	}
	if len(base) > 40 {
		base = strings.Trim(base[:40], "-")
	}
	if len(base) < 3 {
		base = fallbackName
	}
	return base + "-" + siteHash(p.cfg.SiteURL), nil
}

func (p *provisionerSrv) queueName() string {
	base := slugify(p.cfg.SiteName)
	if base == "" {
		base = fallbackName
	}
	return base + "-" + siteHash(p.cfg.SiteURL)
}

// siteHash is a stable 8-hex suffix so two sites with the same name never
// collide on resource names.
func siteHash(siteURL string) string {
	sum := md5.Sum([]byte(siteURL))
	return fmt.Sprintf("%x", sum)[:8]
}

// slugify lowercases and replaces every run of characters outside [a-z0-9]
// with a single hyphen.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// stripInvalid drops characters a bucket name cannot carry, keeping hyphens.
func stripInvalid(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
