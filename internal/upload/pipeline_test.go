package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectview/internal/errors"
	"detectview/internal/media"
	"detectview/internal/stubserver"
	"detectview/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeImage(t *testing.T, dir, name string) types.SelectedImage {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake image "+name), 0644))
	return types.SelectedImage{URI: media.URI(path)}
}

func result(filename string, main int) types.DetectionResult {
	boxes := make([]types.DetectionBox, main)
	for i := range boxes {
		boxes[i] = types.DetectionBox{float64(i), 0, 1, 1}
	}
	return types.DetectionResult{Filename: filename, MainModel: &types.ModelBoxes{Boxes: boxes}}
}

func newStub(t *testing.T) (*stubserver.Server, *httptest.Server) {
	t.Helper()
	stub := stubserver.New(stubserver.Fixtures{})
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)
	return stub, srv
}

func TestUploadAllSkipsFailedImage(t *testing.T) {
	stub, srv := newStub(t)
	dir := t.TempDir()
	a := writeImage(t, dir, "a.jpg")
	b := writeImage(t, dir, "b.jpg")
	c := writeImage(t, dir, "c.jpg")

	stub.SetResults("a.jpg", result("a.jpg", 1), result("a.jpg", 2))
	stub.SetResults("c.jpg", result("c.jpg", 3))
	stub.SetBehavior("b.jpg", stubserver.Fail)

	var mu sync.Mutex
	var statuses []bool
	p := New(srv.URL+"/", WithStatus(func(uploading bool) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, uploading)
	}))

	got := p.UploadAll(context.Background(), []types.SelectedImage{a, b, c})

	require.Len(t, got, 3)
	assert.Equal(t, "a.jpg", got[0].Filename)
	assert.Equal(t, 1, len(got[0].MainBoxes()))
	assert.Equal(t, "a.jpg", got[1].Filename)
	assert.Equal(t, 2, len(got[1].MainBoxes()))
	assert.Equal(t, "c.jpg", got[2].Filename)

	assert.Equal(t, []bool{true, false}, statuses)

	// Every image was attempted, strictly in order
	reqs := stub.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "a.jpg", reqs[0].Filename)
	assert.Equal(t, "b.jpg", reqs[1].Filename)
	assert.Equal(t, "c.jpg", reqs[2].Filename)
}

func TestUploadNetworkFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "a.jpg")

	// Nothing listens on a closed server's address
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := New(url)
	_, err := p.Upload(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkFailure(err))

	var uploadErr *errors.UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "a.jpg", uploadErr.Image())

	got := p.UploadAll(context.Background(), []types.SelectedImage{a})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMultipartPart(t *testing.T) {
	stub, srv := newStub(t)
	dir := t.TempDir()

	// Explicit name and type from the picker win
	named := writeImage(t, dir, "IMG_0001.tmp")
	named.FileName = "holiday.png"
	named.MimeType = "image/png"

	// Otherwise the URI's last segment and image/jpeg are used
	plain := writeImage(t, dir, "street.bin")

	p := New(srv.URL)
	p.UploadAll(context.Background(), []types.SelectedImage{named, plain})

	reqs := stub.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "holiday.png", reqs[0].Filename)
	assert.Equal(t, "image/png", reqs[0].ContentType)
	assert.Equal(t, "street.bin", reqs[1].Filename)
	assert.Equal(t, "image/jpeg", reqs[1].ContentType)
	assert.Equal(t, int64(len("fake image street.bin")), reqs[1].Size)
}

func TestMissingResultsKey(t *testing.T) {
	stub, srv := newStub(t)
	a := writeImage(t, t.TempDir(), "a.jpg")
	stub.SetBehavior("a.jpg", stubserver.NoResults)

	got, err := New(srv.URL).Upload(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMalformedResponseContinues(t *testing.T) {
	stub, srv := newStub(t)
	dir := t.TempDir()
	a := writeImage(t, dir, "a.jpg")
	b := writeImage(t, dir, "b.jpg")
	stub.SetBehavior("a.jpg", stubserver.Garbage)
	stub.SetResults("b.jpg", result("b.jpg", 1))

	p := New(srv.URL)
	_, err := p.Upload(context.Background(), a)
	assert.True(t, errors.IsMalformedResponse(err))

	got := p.UploadAll(context.Background(), []types.SelectedImage{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, "b.jpg", got[0].Filename)
}

func TestUnreadableImage(t *testing.T) {
	stub, srv := newStub(t)
	missing := types.SelectedImage{URI: media.URI(filepath.Join(t.TempDir(), "gone.jpg"))}

	_, err := New(srv.URL).Upload(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, errors.IsFileNotFound(err))
	assert.Equal(t, errors.FileNotFound, errors.KindOf(err))
	assert.Empty(t, stub.Requests())
}

func TestCancelledContextStopsBatch(t *testing.T) {
	stub, srv := newStub(t)
	dir := t.TempDir()
	a := writeImage(t, dir, "a.jpg")
	b := writeImage(t, dir, "b.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	p := New(srv.URL, WithProgress(func(i, n int, img types.SelectedImage) {
		seen = append(seen, img.Name())
		assert.Equal(t, 2, n)
		cancel()
	}))

	got := p.UploadAll(ctx, []types.SelectedImage{a, b})
	assert.Empty(t, got)
	assert.Equal(t, []string{"a.jpg"}, seen)
	assert.Empty(t, stub.Requests())
}

func TestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	a := writeImage(t, t.TempDir(), "a.jpg")

	p := New(slow.URL, WithTimeout(50*time.Millisecond))
	_, err := p.Upload(context.Background(), a)
	assert.True(t, errors.IsNetworkFailure(err))
}

func TestWithHTTPClient(t *testing.T) {
	stub, srv := newStub(t)
	a := writeImage(t, t.TempDir(), "a.jpg")

	p := New(srv.URL, WithTimeout(time.Second), WithHTTPClient(srv.Client()))
	assert.Equal(t, srv.URL, p.Endpoint())
	got := p.UploadAll(context.Background(), []types.SelectedImage{a})
	require.Len(t, got, 1)
	assert.Len(t, stub.Requests(), 1)
}

func TestBoxesWithExtraValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"filename":"a.jpg","main_model":{"boxes":[[1,2,3,4,0.93],[9,9,9]]},` +
			`"sub_model_results":[{"boxes":[[5,6,7,8,0.5,3]]}]}]}`))
	}))
	t.Cleanup(srv.Close)
	a := writeImage(t, t.TempDir(), "a.jpg")

	got := New(srv.URL).UploadAll(context.Background(), []types.SelectedImage{a})
	require.Len(t, got, 1)
	assert.Equal(t, []types.DetectionBox{{1, 2, 3, 4}}, got[0].MainBoxes())
	require.Len(t, got[0].SubModelResults, 1)
	assert.Equal(t, []types.DetectionBox{{5, 6, 7, 8}}, got[0].SubModelResults[0].Boxes)
}
