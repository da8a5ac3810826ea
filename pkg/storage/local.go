// Package storage 提供了图片文件的本地磁盘存储。
// 原图与缩略图保存在 web 根目录下的 uploads 目录中，打标管道按绝对路径直接读取原图。
package storage

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"pai-photo-go/pkg/log"
	"pai-photo-go/pkg/token"
)

const (
	originalDir = "uploads/original"
	thumbDir    = "uploads/thumbs"

	// thumbMaxEdge 是缩略图长边的像素上限。
	thumbMaxEdge = 512
	// thumbQuality 是缩略图 JPEG 的压缩质量。
	thumbQuality = 80
)

// SaveResult 汇总了一次图片入库产生的所有元数据。
type SaveResult struct {
	FilePath      string // 原图的 Web 相对路径，如 /uploads/original/xxx.jpg
	ThumbnailPath string // 缩略图的 Web 相对路径
	AbsolutePath  string // 原图在磁盘上的绝对路径，供打标管道读取
	Width         int
	Height        int
	TakenAt       *time.Time // EXIF 拍摄时间，可能为空
	Location      string     // EXIF GPS 坐标（lat,long），可能为空
	ExifTags      []string   // 从 EXIF 提取的标签：年份、年月、坐标、机型
}

// LocalStorage 将图片保存到本地磁盘。
type LocalStorage struct {
	webRoot string
}

// NewLocalStorage 创建一个 LocalStorage 并确保上传目录存在。
func NewLocalStorage(webRoot string) (*LocalStorage, error) {
	abs, err := filepath.Abs(webRoot)
	if err != nil {
		return nil, fmt.Errorf("解析存储根目录失败: %w", err)
	}
	for _, dir := range []string{originalDir, thumbDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), os.ModePerm); err != nil {
			return nil, fmt.Errorf("创建上传目录失败: %w", err)
		}
	}
	return &LocalStorage{webRoot: abs}, nil
}

// WebRoot 返回静态资源根目录的绝对路径。
func (s *LocalStorage) WebRoot() string {
	return s.webRoot
}

// AbsolutePath 将 Web 相对路径（/uploads/...）换算为磁盘绝对路径。
func (s *LocalStorage) AbsolutePath(relPath string) string {
	return filepath.Join(s.webRoot, filepath.FromSlash(strings.TrimPrefix(relPath, "/")))
}

// SavePhoto 保存一张图片：写入原图、生成缩略图、读取尺寸与 EXIF 元数据。
// 图片无法解码时返回错误并清理已写入的文件。
func (s *LocalStorage) SavePhoto(r io.Reader, fileName string) (*SaveResult, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}

	// 1. 生成不可预测的唯一文件名并落盘
	base := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102150405"), token.GenerateRandomString(8))
	name := base + ext
	thumbName := base + ".thumb.jpg"
	absOriginal := filepath.Join(s.webRoot, originalDir, name)

	dst, err := os.Create(absOriginal)
	if err != nil {
		return nil, fmt.Errorf("创建图片文件失败: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(absOriginal)
		return nil, fmt.Errorf("写入图片文件失败: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(absOriginal)
		return nil, fmt.Errorf("写入图片文件失败: %w", err)
	}

	// 2. 解码，读取尺寸
	img, _, err := decodeImage(absOriginal)
	if err != nil {
		_ = os.Remove(absOriginal)
		return nil, fmt.Errorf("无法解码图片 %s: %w", fileName, err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// 3. 生成缩略图
	absThumb := filepath.Join(s.webRoot, thumbDir, thumbName)
	if err := writeThumbnail(absThumb, img); err != nil {
		_ = os.Remove(absOriginal)
		return nil, fmt.Errorf("生成缩略图失败: %w", err)
	}

	// 4. 提取 EXIF（失败只记日志，不影响上传）
	takenAt, location, exifTags := extractExif(absOriginal)

	return &SaveResult{
		FilePath:      "/" + originalDir + "/" + name,
		ThumbnailPath: "/" + thumbDir + "/" + thumbName,
		AbsolutePath:  absOriginal,
		Width:         width,
		Height:        height,
		TakenAt:       takenAt,
		Location:      location,
		ExifTags:      exifTags,
	}, nil
}

// Remove 删除一个 Web 相对路径对应的文件，文件不存在不视为错误。
func (s *LocalStorage) Remove(relPath string) {
	if strings.TrimSpace(relPath) == "" {
		return
	}
	if err := os.Remove(s.AbsolutePath(relPath)); err != nil && !os.IsNotExist(err) {
		log.Warnf("[Storage] 删除文件失败: %s, err=%v", relPath, err)
	}
}

func decodeImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

// writeThumbnail 将图片等比缩放到长边不超过 thumbMaxEdge 后编码为 JPEG。
// 小于上限的图片不放大。
func writeThumbnail(path string, img image.Image) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	tw, th := width, height
	if width > thumbMaxEdge || height > thumbMaxEdge {
		if width >= height {
			tw = thumbMaxEdge
			th = height * thumbMaxEdge / width
		} else {
			th = thumbMaxEdge
			tw = width * thumbMaxEdge / height
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, scaled, &jpeg.Options{Quality: thumbQuality})
}

// extractExif 从原图中提取拍摄时间、GPS 坐标与机型信息。
// 非 JPEG 或缺失 EXIF 的图片静默跳过。
func extractExif(path string) (*time.Time, string, []string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, "", nil
	}

	var takenAt *time.Time
	var location string
	var tags []string

	if t, err := x.DateTime(); err == nil {
		takenAt = &t
		tags = append(tags, t.Format("2006"), t.Format("2006-01"))
	}

	if lat, long, err := x.LatLong(); err == nil && (lat != 0 || long != 0) {
		location = fmt.Sprintf("%.4f,%.4f", lat, long)
		tags = append(tags, location)
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil && strings.TrimSpace(model) != "" {
			tags = append(tags, strings.TrimSpace(model))
		}
	}

	return takenAt, location, tags
}
