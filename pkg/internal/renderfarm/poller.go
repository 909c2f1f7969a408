package renderfarm

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/pathmap"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/sequence"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/metrics"
	"github.com/yeisme/outputvault/pkg/queue"
)

// jobState 一次观测得出的作业状态.
type jobState int

const (
	stateUnknown jobState = iota // 管理器查询失败，本轮跳过该记录
	stateRemoved                 // 作业已不在队列中
	stateFailed                  // 分块反复重排队，判定失败
	stateCompleted
	stateInProgress
)

// Poller 渲染作业轮询器：把农场侧作业状态回写到 IN RENDER 的
// 输出文件与衍生文件档案上. 只有 IN RENDER 的记录会被触碰.
type Poller struct {
	repo   *repository.Repo
	mgr    Manager
	mapper *pathmap.Mapper
	pub    message.Publisher
	cfg    configs.RenderFarmConfig
}

// NewPoller 组装轮询器. pub 可为 nil（不发农场事件）.
func NewPoller(repo *repository.Repo, mgr Manager, mapper *pathmap.Mapper, pub message.Publisher, cfg configs.RenderFarmConfig) *Poller {
	return &Poller{repo: repo, mgr: mgr, mapper: mapper, pub: pub, cfg: cfg}
}

// Poll 执行一轮作业巡检. 登录失败时整轮放弃，等下个周期重试.
func (p *Poller) Poll(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.FarmPollDuration.Observe(time.Since(start).Seconds()) }()

	if err := p.mgr.Login(ctx); err != nil {
		nlog.Logger().Warn().Err(err).Msg("render manager login failed, skipping poll cycle")

		return fmt.Errorf("render poll: %w", err)
	}
	defer p.mgr.Logout(ctx)

	outputs, err := p.repo.ListOutputFilesInRender(ctx, OwnerMuster)
	if err != nil {
		return fmt.Errorf("render poll: %w", err)
	}

	children, err := p.repo.ListChildrenFilesInRender(ctx, OwnerMuster)
	if err != nil {
		return fmt.Errorf("render poll: %w", err)
	}

	metrics.FarmJobsInRender.Set(float64(len(outputs) + len(children)))

	for i := range outputs {
		p.checkOutput(ctx, &outputs[i])
	}

	for i := range children {
		p.checkChild(ctx, &children[i])
	}

	return nil
}

// observe 拉取分块清单并折算作业状态与进度.
func (p *Poller) observe(ctx context.Context, jobID string) (jobState, float64) {
	chunks, err := p.mgr.GetChunks(ctx, jobID)
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("job_id", jobID).Msg("failed to get job chunks")

		return stateUnknown, 0
	}

	if len(chunks) == 0 {
		return stateRemoved, 0
	}

	terminal := 0

	for _, c := range chunks {
		if c.Status.Terminal() {
			terminal++
		} else if c.Requeued >= p.cfg.RequeueLimit {
			return stateFailed, 0
		}
	}

	if terminal == len(chunks) {
		return stateCompleted, 100
	}

	return stateInProgress, math.Round(float64(terminal) / float64(len(chunks)) * 100)
}

func (p *Poller) checkOutput(ctx context.Context, f *model.OutputFile) {
	state, progress := p.observe(ctx, f.RenderJobID)

	switch state {
	case stateUnknown:
		return

	case stateCompleted:
		if err := p.verify(ctx, f.Path); err != nil {
			nlog.Logger().Warn().Err(err).Str("file_id", f.ID).Msg("rendered output failed verification")
			p.failOutput(ctx, f, "verification failed: "+err.Error())

			return
		}

		if err := p.repo.UpdateOutputFileStatus(ctx, f.ID, model.StatusWaiting); err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("update output status")

			return
		}

		// 产物验收通过，重新交给衍生流水线
		updated, err := p.repo.GetOutputFile(ctx, f.ID)
		if err == nil {
			p.repo.EmitOutputNew(ctx, updated, true)
		}

		p.emitDone(ctx, f.ID, f.RenderJobID, "output")

	case stateInProgress:
		changed, err := p.repo.SetOutputRenderProgress(ctx, f.ID, progress)
		if err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("set output render progress")

			return
		}

		if changed {
			p.emitProgress(ctx, f.ID, f.RenderJobID, "output", progress)
		}

	case stateRemoved, stateFailed:
		p.failOutput(ctx, f, reasonFor(state))
	}
}

func (p *Poller) checkChild(ctx context.Context, f *model.ChildrenFile) {
	state, progress := p.observe(ctx, f.RenderJobID)

	switch state {
	case stateUnknown:
		return

	case stateCompleted:
		size, err := p.verifySized(ctx, f.Path)
		if err != nil {
			nlog.Logger().Warn().Err(err).Str("file_id", f.ID).Msg("rendered children failed verification")
			p.failChild(ctx, f, "verification failed: "+err.Error())

			return
		}

		if err := p.repo.MarkChildrenGenerated(ctx, f.ID, f.Path, size); err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("mark children generated")

			return
		}

		p.emitDone(ctx, f.ID, f.RenderJobID, "children")

	case stateInProgress:
		changed, err := p.repo.SetChildrenRenderProgress(ctx, f.ID, progress)
		if err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("set children render progress")

			return
		}

		if changed {
			p.emitProgress(ctx, f.ID, f.RenderJobID, "children", progress)
		}

	case stateRemoved, stateFailed:
		p.failChild(ctx, f, reasonFor(state))
	}
}

func (p *Poller) failOutput(ctx context.Context, f *model.OutputFile, reason string) {
	if err := p.repo.UpdateOutputFileStatus(ctx, f.ID, model.StatusRenderFailed); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("mark output render failed")

		return
	}

	p.emitFailed(ctx, f.ID, f.RenderJobID, "output", reason)
}

func (p *Poller) failChild(ctx context.Context, f *model.ChildrenFile, reason string) {
	if err := p.repo.MarkChildrenFailed(ctx, f.ID, model.StatusRenderFailed); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("mark children render failed")

		return
	}

	p.emitFailed(ctx, f.ID, f.RenderJobID, "children", reason)
}

func reasonFor(state jobState) string {
	if state == stateRemoved {
		return "job removed from render queue"
	}

	return "chunks exceeded requeue limit"
}

// verify 校验渲染产物已完整落盘：序列逐帧、单文件存在且非空.
func (p *Poller) verify(ctx context.Context, path string) error {
	local := p.localPath(path)
	if local == "" {
		return fmt.Errorf("record has no path")
	}

	base, ref, err := sequence.Parse(local)
	if err != nil {
		return err
	}

	if ref != nil {
		return sequence.VerifyFrames(ctx, ref)
	}

	return sequence.VerifyFile(base)
}

// verifySized 同 verify，并统计产物总字节数.
func (p *Poller) verifySized(ctx context.Context, path string) (int64, error) {
	if err := p.verify(ctx, path); err != nil {
		return 0, err
	}

	base, ref, err := sequence.Parse(p.localPath(path))
	if err != nil {
		return 0, err
	}

	paths := []string{base}
	if ref != nil {
		paths = ref.Expand()
	}

	var total int64

	for _, fp := range paths {
		info, err := os.Stat(fp)
		if err != nil {
			return 0, err
		}

		total += info.Size()
	}

	return total, nil
}

func (p *Poller) localPath(path string) string {
	path = pathmap.Normalize(path)
	if p.mapper != nil {
		path = p.mapper.FromFarm(path)
	}

	return path
}

func (p *Poller) emitProgress(ctx context.Context, fileID, jobID, kind string, progress float64) {
	if p.pub == nil {
		return
	}

	payload := queue.FarmJobProgressPayload{
		Job:      queue.FarmJobRef{Owner: OwnerMuster, JobID: jobID, FileID: fileID, FileKind: kind},
		Progress: progress,
	}

	if err := queue.PublishFarmJobProgress(p.pub, payload, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", fileID).Msg("publish farm progress failed")
	}
}

func (p *Poller) emitDone(ctx context.Context, fileID, jobID, kind string) {
	if p.pub == nil {
		return
	}

	payload := queue.FarmJobDonePayload{
		Job: queue.FarmJobRef{Owner: OwnerMuster, JobID: jobID, FileID: fileID, FileKind: kind},
	}

	if err := queue.PublishFarmJobDone(p.pub, payload, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", fileID).Msg("publish farm done failed")
	}
}

func (p *Poller) emitFailed(ctx context.Context, fileID, jobID, kind, reason string) {
	if p.pub == nil {
		return
	}

	payload := queue.FarmJobFailedPayload{
		Job:    queue.FarmJobRef{Owner: OwnerMuster, JobID: jobID, FileID: fileID, FileKind: kind},
		Reason: reason,
	}

	if err := queue.PublishFarmJobFailed(p.pub, payload, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", fileID).Msg("publish farm failed event failed")
	}
}
