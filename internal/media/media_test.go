package media

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"detectview/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	m, err := NewMatcher("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPattern, m.Pattern())

	assert.True(t, m.Match("/photos/car.jpg"))
	assert.True(t, m.Match("CAR.JPEG"))
	assert.True(t, m.Match("scan.webp"))
	assert.False(t, m.Match("notes.txt"))
	assert.False(t, m.Match("archive.jpg.zip"))

	m, err = NewMatcher("car_*.png")
	require.NoError(t, err)
	assert.True(t, m.Match("car_01.png"))
	assert.False(t, m.Match("bike_01.png"))

	_, err = NewMatcher("[unclosed")
	assert.True(t, errors.IsInvalidConfig(err))

	assert.True(t, IsImage("a/b/c.png"))
	assert.False(t, IsImage("c.md"))
}

func TestExtensionsMatchDefaultPattern(t *testing.T) {
	exts := Extensions()
	require.NotEmpty(t, exts)
	assert.Contains(t, exts, ".jpeg")
	assert.Equal(t, "*.{jpg,jpeg,png,gif,bmp,webp,tif,tiff}", DefaultPattern)

	for _, ext := range exts {
		assert.True(t, IsImage("photo"+ext), ext)
	}

	// Callers get their own copy
	exts[0] = ".txt"
	assert.Equal(t, ".jpg", Extensions()[0])
}

func TestPathAndURI(t *testing.T) {
	p, err := Path("/tmp/car.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/car.jpg", p)

	if runtime.GOOS != "windows" {
		p, err = Path("file:///tmp/my%20car.jpg")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/my car.jpg", p)

		assert.Equal(t, "file:///tmp/my%20car.jpg", URI("/tmp/my car.jpg"))

		back, err := Path(URI("/tmp/x.png"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/x.png", back)
	}

	_, err = Path("content://media/external/images/1")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidImage, errors.KindOf(err))
}

func TestOpenAndDescribe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "car.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0644))

	rc, err := Open(URI(path))
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	img, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, "car.png", img.FileName)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, int64(16), img.Bytes)
	assert.Equal(t, "car.png", img.Name())

	_, err = Open(filepath.Join(dir, "missing.jpg"))
	assert.True(t, errors.IsFileNotFound(err))

	_, err = Describe(dir)
	assert.Equal(t, errors.InvalidImage, errors.KindOf(err))

	assert.NoError(t, CheckReadable(path))
	assert.True(t, errors.IsFileNotFound(CheckReadable(filepath.Join(dir, "nope.png"))))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeType("a.JPG"))
	assert.Equal(t, "image/png", MimeType("a.png"))
	assert.Equal(t, "", MimeType("a.txt"))
	assert.Equal(t, "", MimeType("noext"))
}
