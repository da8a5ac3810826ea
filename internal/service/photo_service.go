package service

import (
	"fmt"
	"io"
	"strings"

	"pai-photo-go/internal/model"
	"pai-photo-go/internal/repository"
	"pai-photo-go/internal/tagging"
	"pai-photo-go/pkg/log"
	"pai-photo-go/pkg/storage"
)

// PhotoService 接口定义了所有与图片相关的业务操作。
type PhotoService interface {
	Upload(userID uint, fileName string, file io.Reader, description string, manualTags []string) (*model.Photo, error)
	List(userID uint, filter repository.PhotoFilter) ([]model.Photo, int64, error)
	Detail(userID, photoID uint) (*model.Photo, error)
	Edit(userID, photoID uint, description *string, manualTags []string) (*model.Photo, error)
	ReplaceFile(userID, photoID uint, fileName string, file io.Reader, saveAsNew bool) (*model.Photo, error)
	Delete(userID, photoID uint) error
	Retag(userID, photoID uint) error
}

// photoService 是 PhotoService 接口的实现。
type photoService struct {
	photoRepo repository.PhotoRepository
	tagRepo   repository.TagRepository
	store     *storage.LocalStorage
	queue     *tagging.Queue
}

// NewPhotoService 创建一个新的 PhotoService 实例。
func NewPhotoService(
	photoRepo repository.PhotoRepository,
	tagRepo repository.TagRepository,
	store *storage.LocalStorage,
	queue *tagging.Queue,
) PhotoService {
	return &photoService{
		photoRepo: photoRepo,
		tagRepo:   tagRepo,
		store:     store,
		queue:     queue,
	}
}

// Upload 处理图片上传：落盘、建库、挂载手动/EXIF 标签，最后提交打标任务。
// 打标任务入队即返回，上传响应绝不等待 AI 结果。
func (s *photoService) Upload(userID uint, fileName string, file io.Reader, description string, manualTags []string) (*model.Photo, error) {
	// 1. 保存原图与缩略图，读取元数据
	saved, err := s.store.SavePhoto(file, fileName)
	if err != nil {
		return nil, err
	}

	// 2. 收集标签：用户手填的 Manual 标签 + EXIF 提取的 Exif 标签
	tags, err := s.collectTags(manualTags, saved.ExifTags)
	if err != nil {
		s.store.Remove(saved.FilePath)
		s.store.Remove(saved.ThumbnailPath)
		return nil, err
	}

	// 3. 写入图片记录（连同标签关联）
	photo := &model.Photo{
		UserID:        userID,
		FilePath:      saved.FilePath,
		ThumbnailPath: saved.ThumbnailPath,
		Width:         saved.Width,
		Height:        saved.Height,
		TakenAt:       saved.TakenAt,
		Location:      saved.Location,
		Description:   strings.TrimSpace(description),
		Tags:          tags,
	}
	if err := s.photoRepo.Create(photo); err != nil {
		s.store.Remove(saved.FilePath)
		s.store.Remove(saved.ThumbnailPath)
		log.Errorf("[PhotoService] 创建图片记录失败, userId: %d, error: %v", userID, err)
		return nil, fmt.Errorf("保存图片失败: %w", err)
	}

	// 4. 提交 AI 打标任务（fire-and-forget）
	s.queue.Enqueue(photo.ID, saved.AbsolutePath)

	return photo, nil
}

// List 按过滤条件分页查询用户的图片。
func (s *photoService) List(userID uint, filter repository.PhotoFilter) ([]model.Photo, int64, error) {
	return s.photoRepo.FindWithFilter(userID, filter)
}

// Detail 查询单张图片的详情（含标签）。
func (s *photoService) Detail(userID, photoID uint) (*model.Photo, error) {
	return s.photoRepo.FindByID(photoID, userID)
}

// Edit 更新图片的描述与手动标签。
// manualTags 为 nil 表示不改动标签；非 nil（含空切片）时整体替换 Manual
// 类型的标签，Ai/Exif 标签保持不变。
func (s *photoService) Edit(userID, photoID uint, description *string, manualTags []string) (*model.Photo, error) {
	photo, err := s.photoRepo.FindByID(photoID, userID)
	if err != nil {
		return nil, err
	}

	if description != nil {
		photo.Description = strings.TrimSpace(*description)
		if err := s.photoRepo.Update(photo); err != nil {
			return nil, err
		}
	}

	if manualTags != nil {
		// 保留非 Manual 标签，替换 Manual 标签
		kept := make([]model.Tag, 0, len(photo.Tags))
		for _, tag := range photo.Tags {
			if tag.Type != model.TagTypeManual {
				kept = append(kept, tag)
			}
		}
		manual, err := s.collectTags(manualTags, nil)
		if err != nil {
			return nil, err
		}
		if err := s.photoRepo.ReplaceTags(photo, append(kept, manual...)); err != nil {
			return nil, err
		}
		// 标签变化会影响词表，重新提交一次打标任务
		s.queue.Enqueue(photo.ID, s.store.AbsolutePath(photo.FilePath))
	}

	return s.photoRepo.FindByID(photoID, userID)
}

// ReplaceFile 用编辑后的图片文件替换原图（或另存为一张新图）。
// saveAsNew 为 true 时保留原图不动，复制描述与手动标签建一张新图；
// 否则原地替换文件并更新尺寸/EXIF 元数据。两种路径都会重新提交打标任务。
func (s *photoService) ReplaceFile(userID, photoID uint, fileName string, file io.Reader, saveAsNew bool) (*model.Photo, error) {
	photo, err := s.photoRepo.FindByID(photoID, userID)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.SavePhoto(file, fileName)
	if err != nil {
		return nil, err
	}

	if saveAsNew {
		var manual []string
		for _, tag := range photo.Tags {
			if tag.Type == model.TagTypeManual {
				manual = append(manual, tag.Name)
			}
		}
		tags, err := s.collectTags(manual, saved.ExifTags)
		if err != nil {
			s.store.Remove(saved.FilePath)
			s.store.Remove(saved.ThumbnailPath)
			return nil, err
		}

		clone := &model.Photo{
			UserID:        userID,
			FilePath:      saved.FilePath,
			ThumbnailPath: saved.ThumbnailPath,
			Width:         saved.Width,
			Height:        saved.Height,
			TakenAt:       saved.TakenAt,
			Location:      saved.Location,
			Description:   photo.Description,
			Tags:          tags,
		}
		if err := s.photoRepo.Create(clone); err != nil {
			s.store.Remove(saved.FilePath)
			s.store.Remove(saved.ThumbnailPath)
			return nil, err
		}
		s.queue.Enqueue(clone.ID, saved.AbsolutePath)
		return clone, nil
	}

	oldFile, oldThumb := photo.FilePath, photo.ThumbnailPath
	photo.FilePath = saved.FilePath
	photo.ThumbnailPath = saved.ThumbnailPath
	photo.Width = saved.Width
	photo.Height = saved.Height
	if saved.TakenAt != nil {
		photo.TakenAt = saved.TakenAt
	}
	if saved.Location != "" {
		photo.Location = saved.Location
	}
	if err := s.photoRepo.Update(photo); err != nil {
		s.store.Remove(saved.FilePath)
		s.store.Remove(saved.ThumbnailPath)
		return nil, err
	}

	s.store.Remove(oldFile)
	s.store.Remove(oldThumb)
	s.queue.Enqueue(photo.ID, saved.AbsolutePath)
	return photo, nil
}

// Delete 删除一张图片：先删库再删文件。
// 文件删除失败只记日志，不回滚数据库删除。
func (s *photoService) Delete(userID, photoID uint) error {
	photo, err := s.photoRepo.FindByID(photoID, userID)
	if err != nil {
		return err
	}
	if err := s.photoRepo.Delete(photo); err != nil {
		return err
	}
	s.store.Remove(photo.FilePath)
	s.store.Remove(photo.ThumbnailPath)
	return nil
}

// Retag 为已有图片重新提交一次 AI 打标任务。
func (s *photoService) Retag(userID, photoID uint) error {
	photo, err := s.photoRepo.FindByID(photoID, userID)
	if err != nil {
		return err
	}
	s.queue.Enqueue(photo.ID, s.store.AbsolutePath(photo.FilePath))
	return nil
}

// collectTags 将标签名去空白、去重后换成持久化的标签记录。
// manual 按 Manual 类型建档，exifTags 按 Exif 类型建档。
func (s *photoService) collectTags(manual, exifTags []string) ([]model.Tag, error) {
	var tags []model.Tag
	seen := make(map[string]struct{}, len(manual)+len(exifTags))

	appendTags := func(names []string, tagType model.TagType) error {
		for _, name := range names {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				continue
			}
			key := fmt.Sprintf("%d:%s", tagType, strings.ToLower(trimmed))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			tag, err := s.tagRepo.FindOrCreate(trimmed, tagType)
			if err != nil {
				return fmt.Errorf("创建标签 %q 失败: %w", trimmed, err)
			}
			tags = append(tags, *tag)
		}
		return nil
	}

	if err := appendTags(manual, model.TagTypeManual); err != nil {
		return nil, err
	}
	if err := appendTags(exifTags, model.TagTypeExif); err != nil {
		return nil, err
	}
	return tags, nil
}
