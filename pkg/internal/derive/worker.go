package derive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/filestore"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/pathmap"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/sequence"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/metrics"
	"github.com/yeisme/outputvault/pkg/queue"
)

// MediaTools 转码工具口，生产实现为 mediatools.Tools.
type MediaTools interface {
	ResizeImage(ctx context.Context, in, out string, maxHeight int) error
	ReencodeSequence(ctx context.Context, inPattern, outPattern string, start, end int, compression string) error
	TranscodeWeb(ctx context.Context, in, out string, start int) error
	TranscodeHigh(ctx context.Context, in, out string, start int) error
	ExtractStill(ctx context.Context, in, out string) error
}

// 缩略图高度.
const (
	thumbHighHeight = 400
	thumbLowHeight  = 200
)

// Worker 衍生产物生成器：消费 ov.children.new，抢占档案后转码落盘.
// 任何失败都终结为 FAILED，档案不会卡在 IN RENDER，也不会回传给发布方.
type Worker struct {
	repo   *repository.Repo
	tools  MediaTools
	store  filestore.Store
	mapper *pathmap.Mapper
	pub    message.Publisher
}

// NewWorker 组装生成器. store 与 pub 可为 nil（关闭槽位上传/预览事件）.
func NewWorker(repo *repository.Repo, tools MediaTools, store filestore.Store, mapper *pathmap.Mapper, pub message.Publisher) *Worker {
	return &Worker{repo: repo, tools: tools, store: store, mapper: mapper, pub: pub}
}

// Run 订阅 ov.children.new 并循环处理直到上下文取消.
// 消息总是 Ack：生成失败在数据库里已是终态，重投递只会抢占失败空转.
func (w *Worker) Run(ctx context.Context, sub message.Subscriber) error {
	msgs, err := sub.Subscribe(ctx, queue.TopicChildrenNew)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.TopicChildrenNew, err)
	}

	for msg := range msgs {
		env, perr := queue.ParseChildrenNew(msg)
		if perr != nil {
			nlog.Logger().Error().Err(perr).Str("msg_uuid", msg.UUID).Msg("drop malformed children new message")
			msg.Ack()

			continue
		}

		if err := w.Process(ctx, env.Payload.FileID); err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", env.Payload.FileID).Msg("children generation failed")
		}

		msg.Ack()
	}

	return nil
}

// Process 处理单个衍生档案.
// 抢占失败（档案已前移）是 no-op；其余任何错误将档案置为 FAILED 后返回.
func (w *Worker) Process(ctx context.Context, childID string) (err error) {
	claimed, err := w.repo.ClaimChildrenFile(ctx, childID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", childID, err)
	}

	if !claimed {
		return nil
	}

	kindLabel := "unknown"

	// 抢占成功后，包括 panic 在内的任何失败都要终结档案.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generation panic: %v", rec)
		}

		if err != nil {
			metrics.ChildrenFailed.WithLabelValues(kindLabel).Inc()

			if ferr := w.repo.MarkChildrenFailed(ctx, childID, model.StatusFailed); ferr != nil {
				nlog.Logger().Error().Err(ferr).Str("file_id", childID).Msg("mark children failed")
			}
		}
	}()

	child, err := w.repo.GetChildrenFile(ctx, childID)
	if err != nil {
		return err
	}

	parent, err := w.repo.GetOutputFile(ctx, child.ParentFileID)
	if err != nil {
		return err
	}

	kindType, err := w.repo.GetOutputType(ctx, child.OutputTypeID)
	if err != nil {
		return err
	}

	kind := Kind(kindType.ShortName)
	kindLabel = string(kind)

	local := w.localPath(parent.Path)
	if local == "" {
		return fmt.Errorf("output file %s has no source path", parent.ID)
	}

	base, ref, err := sequence.Parse(local)
	if err != nil {
		return err
	}

	dest := destPath(base, parent.Name, parent.Revision, kind)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create children dir: %w", err)
	}

	if err := w.generate(ctx, kind, base, ref, dest); err != nil {
		return err
	}

	size, err := verifyOutput(ctx, dest, ref)
	if err != nil {
		return fmt.Errorf("verify %s: %w", dest, err)
	}

	if err := w.publishSlot(ctx, kind, parent.ID, dest); err != nil {
		return err
	}

	stored := dest
	if sequence.IsPattern(dest) && ref != nil {
		stored = fmt.Sprintf("%s [%d-%d]", dest, ref.Start, ref.End)
	}

	if err := w.repo.MarkChildrenGenerated(ctx, childID, stored, size); err != nil {
		return err
	}

	metrics.ChildrenGenerated.WithLabelValues(kindLabel).Inc()

	return nil
}

// localPath 把发布方记录的路径映射到本机挂载并规范化.
func (w *Worker) localPath(path string) string {
	path = pathmap.Normalize(path)
	if w.mapper != nil {
		path = w.mapper.FromFarm(path)
	}

	return path
}

// destExt 各派生种类的落盘扩展名，代理保留帧号占位符.
var destExt = map[Kind]string{
	KindThumbHigh:  ".jpeg",
	KindThumbLow:   ".jpeg",
	KindReviewWeb:  ".mp4",
	KindReviewHigh: ".mov",
	KindProxyExr:   ".%04d.exr",
	KindProxyJpeg:  ".%04d.jpeg",
}

// destPath 产物目的地：源文件同级 children 目录，名称带修订号与种类段.
// 种类段保证同一父文件的各产物互不覆盖（thumb_high 与 thumb_low 扩展名相同）.
func destPath(localBase, name string, revision int, kind Kind) string {
	file := fmt.Sprintf("%s_v%03d.%s%s", name, revision, kind, destExt[kind])

	return filepath.ToSlash(filepath.Join(filepath.Dir(localBase), "children", file))
}

func (w *Worker) generate(ctx context.Context, kind Kind, base string, ref *sequence.Ref, dest string) error {
	ext := sequence.Ext(base)
	isMovie := IsMovieExt(ext)

	// 序列输入取首帧做静帧源
	still := base
	start := 0

	if ref != nil {
		still = sequence.FramePath(base, ref.Start)
		start = ref.Start
	}

	switch kind {
	case KindThumbHigh, KindThumbLow:
		height := thumbHighHeight
		if kind == KindThumbLow {
			height = thumbLowHeight
		}

		if isMovie {
			return w.tools.ExtractStill(ctx, base, dest)
		}

		return w.tools.ResizeImage(ctx, still, dest, height)

	case KindReviewWeb:
		if isMovie {
			return w.tools.TranscodeWeb(ctx, base, dest, 0)
		}

		return w.tools.TranscodeWeb(ctx, base, dest, start)

	case KindReviewHigh:
		if isMovie {
			return w.tools.TranscodeHigh(ctx, base, dest, 0)
		}

		return w.tools.TranscodeHigh(ctx, base, dest, start)

	case KindProxyExr, KindProxyJpeg:
		if ref == nil {
			return fmt.Errorf("kind %s requires a frame range, got single file %s", kind, base)
		}

		compression := "dwaa:150"
		if kind == KindProxyJpeg {
			compression = "jpeg:90"
		}

		return w.tools.ReencodeSequence(ctx, base, dest, ref.Start, ref.End, compression)

	default:
		return fmt.Errorf("no generator for kind %q", kind)
	}
}

// verifyOutput 断言产物已落盘且非空，返回总字节数.
// 序列产物逐帧校验，任一帧缺失即失败.
func verifyOutput(ctx context.Context, dest string, ref *sequence.Ref) (int64, error) {
	if sequence.IsPattern(dest) && ref != nil {
		out := &sequence.Ref{Pattern: dest, Start: ref.Start, End: ref.End}

		if err := sequence.VerifyFrames(ctx, out); err != nil {
			return 0, err
		}

		var total int64

		for _, p := range out.Expand() {
			info, err := os.Stat(p)
			if err != nil {
				return 0, err
			}

			total += info.Size()
		}

		return total, nil
	}

	if err := sequence.VerifyFile(dest); err != nil {
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// slotFor 需要上传对象存储的种类及其槽位.
var slotFor = map[Kind]filestore.Slot{
	KindThumbHigh: filestore.SlotOriginal,
	KindThumbLow:  filestore.SlotThumbnails,
	KindReviewWeb: filestore.SlotPreviews,
}

// publishSlot 把预览类产物推入对象存储槽位并发布 ov.preview.updated.
// 槽位归属父输出文件：同一对象不同输出文件的预览互不覆盖.
func (w *Worker) publishSlot(ctx context.Context, kind Kind, fileID, dest string) error {
	slot, ok := slotFor[kind]
	if !ok || w.store == nil {
		return nil
	}

	var err error
	if kind == KindReviewWeb {
		err = w.store.AddMovie(ctx, slot, fileID, dest)
	} else {
		err = w.store.AddPicture(ctx, slot, fileID, dest)
	}

	if err != nil {
		return fmt.Errorf("store %s slot %s: %w", kind, slot, err)
	}

	cfg := configs.GetConfig()
	if w.pub != nil && cfg.Events.Enabled && cfg.Events.Preview.Updated {
		payload := queue.PreviewUpdatedPayload{
			FileID: fileID,
			Slot:   string(slot),
			Key:    w.store.PicturePath(slot, fileID),
		}

		if perr := queue.PublishPreviewUpdated(w.pub, payload, queue.WithProducer(configs.AppName)); perr != nil {
			nlog.Logger().Error().Err(perr).Str("file_id", fileID).Msg("publish preview updated failed")
		}
	}

	return nil
}
