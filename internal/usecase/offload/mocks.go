package offload

import (
	"context"
	"io"
	"time"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type appliedUpdate struct {
	id  int64
	upd model.JobUpdate
}

type mockJobRepo struct {
	job    *model.Job
	jobs   []model.Job
	failed []model.Job
	stats  *model.JobStats

	insertErr error
	updateErr error
	getErr    error
	listErr   error
	statsErr  error

	nextID   int64
	inserted []*model.Job
	updates  []appliedUpdate
}

func (m *mockJobRepo) Insert(ctx context.Context, job *model.Job) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	job.ID = m.nextID
	m.inserted = append(m.inserted, job)
	return nil
}
func (m *mockJobRepo) Update(ctx context.Context, id int64, upd model.JobUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, appliedUpdate{id, upd})
	return nil
}
func (m *mockJobRepo) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.job, nil
}
func (m *mockJobRepo) List(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	return m.jobs, m.listErr
}
func (m *mockJobRepo) ListFailed(ctx context.Context, limit int) ([]model.Job, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit < len(m.failed) {
		return m.failed[:limit], nil
	}
	return m.failed, nil
}
func (m *mockJobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}
func (m *mockJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type sentMessage struct {
	queueURL string
	msg      model.TransferMessage
}

type mockQueue struct {
	batches [][]port.QueueMessage

	createErr  error
	sendErr    error
	receiveErr error
	deleteErr  error

	queueURL string
	sent     []sentMessage
	deleted  []string
}

func (m *mockQueue) CreateQueue(ctx context.Context, name string) (string, error) {
	return m.queueURL, m.createErr
}
func (m *mockQueue) DeleteQueue(ctx context.Context, queueURL string) error { return nil }
func (m *mockQueue) Send(ctx context.Context, queueURL string, msg model.TransferMessage) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, sentMessage{queueURL, msg})
	return "msg-1", nil
}
func (m *mockQueue) Receive(ctx context.Context, queueURL string, maxMessages int) ([]port.QueueMessage, error) {
	if m.receiveErr != nil {
		return nil, m.receiveErr
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}
func (m *mockQueue) DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error {
	m.deleted = append(m.deleted, receiptHandle)
	return m.deleteErr
}

type objectLocation struct {
	key, bucket, url string
}

type rewritePair struct {
	oldURL, newURL string
}

type mockLibrary struct {
	attachment  *model.Attachment
	localPath   string
	localURL    string
	regenerated model.Renditions

	getErr       error
	localPathErr error
	localURLErr  error
	setLocErr    error
	clearErr     error
	setAltErr    error
	rewriteErr   error
	regenErr     error

	located     *objectLocation
	cleared     bool
	dimensions  [2]int
	primaryURL  string
	altText     string
	rewrites    []rewritePair
	regenCalled bool
}

func (m *mockLibrary) FirstAttachmentFilename(ctx context.Context) (string, error) {
	return "", nil
}
func (m *mockLibrary) GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.attachment, nil
}
func (m *mockLibrary) LocalPath(ctx context.Context, id int64) (string, error) {
	return m.localPath, m.localPathErr
}
func (m *mockLibrary) LocalURL(ctx context.Context, id int64) (string, error) {
	return m.localURL, m.localURLErr
}
func (m *mockLibrary) SetObjectLocation(ctx context.Context, id int64, key, bucket, url string) error {
	if m.setLocErr != nil {
		return m.setLocErr
	}
	m.located = &objectLocation{key, bucket, url}
	return nil
}
func (m *mockLibrary) ClearObjectLocation(ctx context.Context, id int64) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	return nil
}
func (m *mockLibrary) RecordDimensions(ctx context.Context, id int64, width, height int) error {
	m.dimensions = [2]int{width, height}
	return nil
}
func (m *mockLibrary) SetPrimaryURL(ctx context.Context, id int64, url string) error {
	m.primaryURL = url
	return nil
}
func (m *mockLibrary) SetAltText(ctx context.Context, id int64, alt string) error {
	if m.setAltErr != nil {
		return m.setAltErr
	}
	m.altText = alt
	return nil
}
func (m *mockLibrary) RewriteReferences(ctx context.Context, oldURL, newURL string) error {
	if m.rewriteErr != nil {
		return m.rewriteErr
	}
	m.rewrites = append(m.rewrites, rewritePair{oldURL, newURL})
	return nil
}
func (m *mockLibrary) RegenerateRenditions(ctx context.Context, id int64, localPath string) (model.Renditions, error) {
	m.regenCalled = true
	if m.regenErr != nil {
		return nil, m.regenErr
	}
	return m.regenerated, nil
}

type uploadCall struct {
	bucket, key, contentType string
	size                     int
}

type downloadCall struct {
	bucket, key, localPath string
}

type mockStorage struct {
	downloadSize int64

	uploadErr    error
	uploadErrs   map[string]error
	downloadErr  error
	downloadErrs map[string]error

	uploads   []uploadCall
	downloads []downloadCall
}

func (m *mockStorage) CreateBucket(ctx context.Context, bucket string, preservePermissions bool) error {
	return nil
}
func (m *mockStorage) DeleteBucket(ctx context.Context, bucket string) error { return nil }
func (m *mockStorage) Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if err, ok := m.uploadErrs[key]; ok {
		return "", err
	}
	m.uploads = append(m.uploads, uploadCall{bucket, key, contentType, len(body)})
	return "https://" + bucket + ".s3.eu-west-3.amazonaws.com/" + key, nil
}
func (m *mockStorage) Download(ctx context.Context, bucket, key, localPath string) (int64, error) {
	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	if err, ok := m.downloadErrs[key]; ok {
		return 0, err
	}
	m.downloads = append(m.downloads, downloadCall{bucket, key, localPath})
	return m.downloadSize, nil
}
func (m *mockStorage) Delete(ctx context.Context, bucket, key string) error { return nil }
func (m *mockStorage) ListObjects(ctx context.Context, bucket, continuationToken string) ([]string, string, error) {
	return nil, "", nil
}

type mockStacks struct {
	stack *model.StackDescriptor

	getErr  error
	saveErr error

	saved *model.StackDescriptor
}

func (m *mockStacks) GetStack(ctx context.Context) (*model.StackDescriptor, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.stack, nil
}
func (m *mockStacks) SaveStack(ctx context.Context, stack *model.StackDescriptor) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = stack
	return nil
}

type mockCache struct {
	data []byte

	getErr        error
	invalidateErr error

	setCalled   bool
	setTTL      time.Duration
	invalidated int
}

func (m *mockCache) GetStats(ctx context.Context) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data, nil
}
func (m *mockCache) SetStats(ctx context.Context, data []byte, ttl time.Duration) {
	m.setCalled = true
	m.setTTL = ttl
	m.data = data
}
func (m *mockCache) InvalidateStats(ctx context.Context) error {
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	m.invalidated++
	return nil
}

type mockOptimiser struct {
	resizeResult *port.ResizeResult
	compressData []byte
	service      string

	resizeErr   error
	compressErr error

	resizeCalled   bool
	compressCalled bool
	gotMaxWidth    int
	gotMaxHeight   int
}

func (m *mockOptimiser) Resize(mimeType string, r io.Reader, maxWidth, maxHeight int) (*port.ResizeResult, error) {
	m.resizeCalled = true
	m.gotMaxWidth = maxWidth
	m.gotMaxHeight = maxHeight
	if m.resizeErr != nil {
		return nil, m.resizeErr
	}
	return m.resizeResult, nil
}
func (m *mockOptimiser) Compress(mimeType string, r io.Reader) ([]byte, string, error) {
	m.compressCalled = true
	if m.compressErr != nil {
		return nil, "", m.compressErr
	}
	return m.compressData, m.service, nil
}

type mockVision struct {
	text string
	err  error

	called bool
	gotReq port.VisionRequest
}

func (m *mockVision) CompleteVision(ctx context.Context, req port.VisionRequest) (string, error) {
	m.called = true
	m.gotReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type mockEnqueuer struct {
	uploadErr   error
	downloadErr error

	nextID    int64
	uploads   []port.EnqueueInput
	downloads []port.EnqueueInput
}

func (m *mockEnqueuer) EnqueueUpload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	if m.uploadErr != nil {
		return 0, m.uploadErr
	}
	m.nextID++
	m.uploads = append(m.uploads, in)
	return m.nextID, nil
}
func (m *mockEnqueuer) EnqueueDownload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	m.nextID++
	m.downloads = append(m.downloads, in)
	return m.nextID, nil
}

type mockUploader struct {
	err     error
	handled []model.TransferMessage
}

func (m *mockUploader) HandleUpload(ctx context.Context, msg model.TransferMessage) error {
	m.handled = append(m.handled, msg)
	return m.err
}

type mockDownloader struct {
	err     error
	handled []model.TransferMessage
}

func (m *mockDownloader) HandleDownload(ctx context.Context, msg model.TransferMessage) error {
	m.handled = append(m.handled, msg)
	return m.err
}
