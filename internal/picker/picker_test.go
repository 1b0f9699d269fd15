package picker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"detectview/internal/errors"
	"detectview/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte(n), 0644))
		paths = append(paths, p)
	}
	return paths
}

func names(images []types.SelectedImage) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Name()
	}
	return out
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 5, Limit{Max: 5, Multi: true}.Cap())
	assert.Equal(t, 1, Limit{Max: 5, Multi: false}.Cap())
	assert.Equal(t, 1, Limit{Max: 0, Multi: true}.Cap())

	imgs := make([]types.SelectedImage, 7)
	assert.Len(t, Limit{Max: 5, Multi: true}.Apply(imgs), 5)
	assert.Len(t, Limit{Multi: false}.Apply(imgs), 1)
	assert.Len(t, Limit{Max: 5, Multi: true}.Apply(imgs[:2]), 2)
}

func TestFileGateway(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "b.jpg", "a.png", "notes.txt")

	g := NewFileGateway(paths...)
	images, err := g.RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	require.NoError(t, err)
	// Order is preserved and non-images are skipped
	assert.Equal(t, []string{"b.jpg", "a.png"}, names(images))
	assert.Equal(t, "image/png", images[1].MimeType)

	images, err = g.RequestImages(context.Background(), Limit{Max: 5, Multi: false})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, names(images))
}

func TestFileGatewayCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "readme.md")

	_, err := NewFileGateway(paths...).RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.True(t, errors.IsCancelled(err))
	assert.ErrorIs(t, err, errors.ErrCancelled)

	_, err = NewFileGateway().RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.True(t, errors.IsCancelled(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileGateway(touch(t, dir, "x.jpg")...).RequestImages(ctx, Limit{Max: 1})
	assert.True(t, errors.IsCancelled(err))
}

func TestFileGatewayMissingFile(t *testing.T) {
	_, err := NewFileGateway(filepath.Join(t.TempDir(), "gone.jpg")).RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	require.Error(t, err)
	assert.True(t, errors.IsFileNotFound(err))
	assert.False(t, errors.IsCancelled(err))
}

func TestFileGatewayPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	paths := touch(t, dir, "secret.jpg")
	require.NoError(t, os.Chmod(paths[0], 0000))

	_, err := NewFileGateway(paths...).RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.True(t, errors.IsPermissionDenied(err))
	assert.ErrorIs(t, err, errors.ErrPermissionDenied)
}

func TestGlobGateway(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "car_3.jpg", "car_1.jpg", "car_2.png", "bike.jpg", "car.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "car_dir.jpg"), 0755))

	g, err := NewGlobGateway(dir, "car_*")
	require.NoError(t, err)
	images, err := g.RequestImages(context.Background(), Limit{Max: 2, Multi: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"car_1.jpg", "car_2.png"}, names(images))

	g, err = NewGlobGateway(dir, "")
	require.NoError(t, err)
	images, err = g.RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bike.jpg", "car_1.jpg", "car_2.png", "car_3.jpg"}, names(images))

	g, err = NewGlobGateway(dir, "*.gif")
	require.NoError(t, err)
	_, err = g.RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.True(t, errors.IsCancelled(err))

	g, err = NewGlobGateway(filepath.Join(dir, "missing"), "")
	require.NoError(t, err)
	_, err = g.RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.Error(t, err)

	_, err = NewGlobGateway(dir, "[broken")
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestStaticGateway(t *testing.T) {
	imgs := []types.SelectedImage{{URI: "file:///a.jpg"}, {URI: "file:///b.jpg"}}
	g := &StaticGateway{Images: imgs}

	got, err := g.RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	require.NoError(t, err)
	assert.Equal(t, imgs, got)
	got[0].URI = "changed"
	assert.Equal(t, "file:///a.jpg", g.Images[0].URI)

	_, err = (&StaticGateway{}).RequestImages(context.Background(), Limit{Max: 5, Multi: true})
	assert.True(t, errors.IsCancelled(err))

	_, err = (&StaticGateway{Err: errors.ErrPermissionDenied}).RequestImages(context.Background(), Limit{})
	assert.True(t, errors.IsPermissionDenied(err))

	var fn Gateway = GatewayFunc(func(ctx context.Context, l Limit) ([]types.SelectedImage, error) {
		return imgs[:l.Cap()], nil
	})
	got, err = fn.RequestImages(context.Background(), Limit{Multi: false})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
