// Package filestore 以 (槽位, 归属 ID) 为键存取衍生媒体产物.
// 图片槽位：original（缩略图原图）、thumbnails（小图）、previews（审看图/影片）.
// 底层为对象存储，图片与影片分桶.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/outputvault/pkg/configs"
	s3c "github.com/yeisme/outputvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/outputvault/pkg/log"
)

// Slot 图片/影片槽位.
type Slot string

const (
	SlotOriginal   Slot = "original"
	SlotThumbnails Slot = "thumbnails"
	SlotPreviews   Slot = "previews"
)

// Store 槽位化的产物存取口.
// 实现为 minio；测试中用内存 fake.
type Store interface {
	// AddPicture 把本地图片写入指定槽位.
	AddPicture(ctx context.Context, slot Slot, ownerID, localPath string) error
	// AddMovie 把本地影片写入 previews 槽位（影片桶）.
	AddMovie(ctx context.Context, slot Slot, ownerID, localPath string) error
	// PicturePath 归属对象在桶内的键.
	PicturePath(slot Slot, ownerID string) string
	// RemovePictures 删除归属对象在若干槽位的图片.
	RemovePictures(ctx context.Context, ownerID string, slots ...Slot) error
}

// S3Store 基于 minio 的实现.
type S3Store struct {
	cli *s3c.Client
	cfg configs.S3Config
}

// NewS3Store 构建对象存储实现.
func NewS3Store(cli *s3c.Client) *S3Store {
	return &S3Store{cli: cli, cfg: configs.GetConfig().S3}
}

// PicturePath 槽位键形如 "thumbnails/<owner id>.png"；影片为 .mp4.
func (s *S3Store) PicturePath(slot Slot, ownerID string) string {
	return path.Join(string(slot), ownerID+".png")
}

func (s *S3Store) moviePath(slot Slot, ownerID string) string {
	return path.Join(string(slot), ownerID+".mp4")
}

// AddPicture 上传本地图片到图片桶的槽位键下，覆盖写.
func (s *S3Store) AddPicture(ctx context.Context, slot Slot, ownerID, localPath string) error {
	return s.upload(ctx, s.cfg.PictureBucket, s.PicturePath(slot, ownerID), localPath, "image/png")
}

// AddMovie 上传本地影片到影片桶.
func (s *S3Store) AddMovie(ctx context.Context, slot Slot, ownerID, localPath string) error {
	return s.upload(ctx, s.cfg.MovieBucket, s.moviePath(slot, ownerID), localPath, "video/mp4")
}

func (s *S3Store) upload(ctx context.Context, bucket, key, localPath, contentType string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	if info.Size() == 0 {
		return fmt.Errorf("refusing to upload empty file %s", localPath)
	}

	if _, err := s.cli.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	nlog.Logger().Debug().Str("bucket", bucket).Str("key", key).Msg("artifact uploaded")

	return nil
}

// RemovePictures 逐槽位删除；对象不存在不算错误.
func (s *S3Store) RemovePictures(ctx context.Context, ownerID string, slots ...Slot) error {
	for _, slot := range slots {
		key := s.PicturePath(slot, ownerID)
		if err := s.cli.RemoveObject(ctx, s.cfg.PictureBucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}

	return nil
}
