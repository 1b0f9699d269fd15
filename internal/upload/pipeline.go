// Package upload sends selected images to the detection service one at a
// time and accumulates the results it returns.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/uuid"

	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/pkg/types"
)

// FieldName is the multipart field carrying the image.
const FieldName = "files"

// StatusFunc is told when a batch starts and stops uploading.
type StatusFunc func(uploading bool)

// ProgressFunc is told before each image is sent. index is zero based.
type ProgressFunc func(index, total int, img types.SelectedImage)

// Pipeline uploads images sequentially to a single endpoint.
type Pipeline struct {
	client   *resty.Client
	endpoint string
	status   StatusFunc
	progress ProgressFunc
	logger   *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.client.SetTimeout(d)
		}
	}
}

// WithHTTPClient sends requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Pipeline) {
		timeout := p.client.GetClient().Timeout
		p.client = resty.NewWithClient(hc)
		if timeout > 0 {
			p.client.SetTimeout(timeout)
		}
	}
}

// WithStatus registers the uploading flag callback.
func WithStatus(fn StatusFunc) Option {
	return func(p *Pipeline) {
		p.status = fn
	}
}

// WithProgress registers a per-image callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithLogger replaces the logger used for per-image failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a Pipeline posting to endpoint.
func New(endpoint string, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:   resty.New(),
		endpoint: endpoint,
		logger:   log.LogWithFields(log.F("component", "upload")),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client.SetLogger(p.logger)
	return p
}

// Endpoint returns the URL images are posted to.
func (p *Pipeline) Endpoint() string {
	return p.endpoint
}

// UploadAll uploads images in order and returns every result received,
// in image order. A failing image is logged and contributes nothing; the
// batch always runs to the end unless ctx is cancelled, which stops it
// before the next image. The returned slice is never nil.
func (p *Pipeline) UploadAll(ctx context.Context, images []types.SelectedImage) []types.DetectionResult {
	batch := newBatchID()
	logger := p.logger.With(log.F("batch", batch))

	p.setStatus(true)
	defer p.setStatus(false)

	logger.Infof("uploading %d image(s) to %s", len(images), p.endpoint)

	results := make([]types.DetectionResult, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			logger.With(log.F("remaining", len(images)-i)).Warn("upload batch stopped")
			break
		}
		if p.progress != nil {
			p.progress(i, len(images), img)
		}

		got, err := p.Upload(ctx, img)
		if err != nil {
			logger.WithError(err).Error("Upload Failed")
			continue
		}
		results = append(results, got...)
	}

	logger.Infof("batch finished with %d result(s)", len(results))
	return results
}

// Upload sends a single image and returns the results in its response.
// A response without a "results" key yields no results and no error.
func (p *Pipeline) Upload(ctx context.Context, img types.SelectedImage) ([]types.DetectionResult, error) {
	name := img.Name()

	rc, err := media.Open(img.URI)
	if err != nil {
		return nil, errors.NewUploadError("cannot read image", name, errors.KindOf(err), err)
	}
	defer rc.Close()

	resp, err := p.client.R().
		SetContext(ctx).
		SetMultipartField(FieldName, name, img.ContentType(), rc).
		Post(p.endpoint)
	if err != nil {
		return nil, errors.NewUploadError("request failed", name, errors.NetworkFailure, err)
	}
	if !resp.IsSuccess() {
		return nil, errors.NewUploadError(
			fmt.Sprintf("detection service returned %s", resp.Status()),
			name, errors.NetworkFailure, nil)
	}

	var body types.DetectionResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errors.NewUploadError("cannot parse response", name, errors.MalformedResponse, err)
	}

	p.logger.With(log.F("image", name), log.F("results", len(body.Results))).
		Debugf("Upload Response: %s", resp.String())

	return body.Results, nil
}

func (p *Pipeline) setStatus(uploading bool) {
	if p.status != nil {
		p.status(uploading)
	}
}

func newBatchID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("batch-%d", time.Now().UnixNano())
	}
	return id.String()
}
