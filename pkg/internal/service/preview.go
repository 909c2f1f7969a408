package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/outputvault/pkg/configs"
	ctxPkg "github.com/yeisme/outputvault/pkg/context"
	"github.com/yeisme/outputvault/pkg/internal/filestore"
	"github.com/yeisme/outputvault/pkg/internal/storage/mq"
	"github.com/yeisme/outputvault/pkg/internal/types"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/queue"
)

// 图片槽位全集，删除时未指定槽位即作用于全部.
var allPictureSlots = []filestore.Slot{
	filestore.SlotOriginal, filestore.SlotThumbnails, filestore.SlotPreviews,
}

// PreviewService 负责预览图片（衍生产物在对象存储中的副本）的查询与删除.
type PreviewService struct {
	store filestore.Store
	mqc   *mq.Client
}

// NewPreviewService 创建并返回一个新的 PreviewService 实例.
func NewPreviewService(c context.Context) *PreviewService {
	svc := &PreviewService{mqc: ctxPkg.GetMQClient(c)}

	if s3c := ctxPkg.GetS3Client(c); s3c != nil {
		svc.store = filestore.NewS3Store(s3c)
	} else {
		nlog.Logger().Warn().Msg("S3 client not initialized, PreviewService features limited")
	}

	return svc
}

// PicturePath 返回输出文件某槽位图片在桶内的键.
func (s *PreviewService) PicturePath(fileID, slot string) (*types.PreviewPathResponse, error) {
	if s.store == nil {
		return nil, errors.New("s3 not initialized")
	}

	sl, err := parseSlot(slot)
	if err != nil {
		return nil, err
	}

	return &types.PreviewPathResponse{
		FileID: fileID,
		Slot:   string(sl),
		Key:    s.store.PicturePath(sl, fileID),
	}, nil
}

// DeletePreview 删除输出文件在指定槽位的预览图片并发布删除事件.
func (s *PreviewService) DeletePreview(ctx context.Context, fileID string, slotNames []string) error {
	if s.store == nil {
		return errors.New("s3 not initialized")
	}

	slots := make([]filestore.Slot, 0, len(slotNames))

	for _, n := range slotNames {
		sl, err := parseSlot(n)
		if err != nil {
			return err
		}

		slots = append(slots, sl)
	}

	if len(slots) == 0 {
		slots = allPictureSlots
	}

	if err := s.store.RemovePictures(ctx, fileID, slots...); err != nil {
		return err
	}

	cfg := configs.GetConfig()
	if s.mqc != nil && cfg.Events.Enabled && cfg.Events.Preview.Deleted {
		names := make([]string, 0, len(slots))
		for _, sl := range slots {
			names = append(names, string(sl))
		}

		msg, err := queue.NewWatermillMessage(queue.TopicPreviewDeleted,
			queue.PreviewDeletedPayload{FileID: fileID, Slots: names},
			queue.WithProducer(configs.AppName))
		if err == nil {
			if perr := s.mqc.Publish(ctx, queue.TopicPreviewDeleted, msg); perr != nil {
				nlog.Logger().Error().Err(perr).Str("file_id", fileID).Msg("publish preview deleted failed")
			}
		}
	}

	return nil
}

func parseSlot(name string) (filestore.Slot, error) {
	switch filestore.Slot(name) {
	case filestore.SlotOriginal, filestore.SlotThumbnails, filestore.SlotPreviews:
		return filestore.Slot(name), nil
	default:
		return "", fmt.Errorf("unknown picture slot %q", name)
	}
}
