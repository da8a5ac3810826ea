package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestJPEG 在内存中生成一张指定尺寸的 JPEG 图片。
func encodeTestJPEG(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &buf
}

func TestNewLocalStorageCreatesDirs(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(store.WebRoot(), "uploads", "original"))
	assert.DirExists(t, filepath.Join(store.WebRoot(), "uploads", "thumbs"))
}

func TestSavePhoto(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	result, err := store.SavePhoto(encodeTestJPEG(t, 800, 600), "vacation.jpg")
	require.NoError(t, err)

	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 600, result.Height)
	assert.True(t, strings.HasPrefix(result.FilePath, "/uploads/original/"))
	assert.True(t, strings.HasPrefix(result.ThumbnailPath, "/uploads/thumbs/"))
	assert.True(t, strings.HasSuffix(result.FilePath, ".jpg"))
	assert.FileExists(t, result.AbsolutePath)
	assert.FileExists(t, store.AbsolutePath(result.ThumbnailPath))

	// 纯色测试图没有 EXIF
	assert.Nil(t, result.TakenAt)
	assert.Empty(t, result.Location)
	assert.Empty(t, result.ExifTags)
}

func TestSavePhotoThumbnailScaledDown(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	result, err := store.SavePhoto(encodeTestJPEG(t, 2048, 1024), "wide.jpg")
	require.NoError(t, err)

	f, err := os.Open(store.AbsolutePath(result.ThumbnailPath))
	require.NoError(t, err)
	defer f.Close()

	thumb, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 512, thumb.Bounds().Dx(), "长边缩到 512")
	assert.Equal(t, 256, thumb.Bounds().Dy(), "保持宽高比")
}

func TestSavePhotoSmallImageNotUpscaled(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	result, err := store.SavePhoto(encodeTestJPEG(t, 100, 80), "tiny.jpg")
	require.NoError(t, err)

	f, err := os.Open(store.AbsolutePath(result.ThumbnailPath))
	require.NoError(t, err)
	defer f.Close()

	thumb, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 80, thumb.Bounds().Dy())
}

func TestSavePhotoRejectsUndecodableFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SavePhoto(bytes.NewBufferString("this is not an image"), "fake.jpg")
	require.Error(t, err)

	// 无法解码的文件不应残留在磁盘上
	entries, err := os.ReadDir(filepath.Join(store.WebRoot(), "uploads", "original"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSavePhotoUniqueNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first, err := store.SavePhoto(encodeTestJPEG(t, 10, 10), "same.jpg")
	require.NoError(t, err)
	second, err := store.SavePhoto(encodeTestJPEG(t, 10, 10), "same.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first.FilePath, second.FilePath)
}

func TestAbsolutePath(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	abs := store.AbsolutePath("/uploads/original/a.jpg")
	assert.Equal(t, filepath.Join(store.WebRoot(), "uploads", "original", "a.jpg"), abs)
}

func TestRemove(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	result, err := store.SavePhoto(encodeTestJPEG(t, 10, 10), "a.jpg")
	require.NoError(t, err)

	store.Remove(result.FilePath)
	assert.NoFileExists(t, result.AbsolutePath)

	// 重复删除与空路径都不应 panic
	store.Remove(result.FilePath)
	store.Remove("")
}
