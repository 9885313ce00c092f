package offload

// Options tunes the transfer pipeline. A zero value disables every optional
// step (no resize, no compression, no rendition uploads, keep local files).
type Options struct {
	Region        string
	KeyPrefix     string
	UseCloudFront bool
	CDNDomain     string

	ResizeMaxWidth  int
	ResizeMaxHeight int
	CompressImages  bool

	UploadRenditions       bool
	DeleteLocalAfterUpload bool
}

// remoteURL is the URL an object serves from once offloaded, preferring the
// CDN domain when one is configured.
func (o Options) remoteURL(bucket, key string) string {
	if o.UseCloudFront && o.CDNDomain != "" {
		return "https://" + o.CDNDomain + "/" + key
	}
	return "https://" + bucket + ".s3." + o.Region + ".amazonaws.com/" + key
}
