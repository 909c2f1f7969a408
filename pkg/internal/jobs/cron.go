// Package jobs 负责注册业务定时任务与事件消费者（基于 scheduler 与 MQ）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yeisme/outputvault/pkg/cache"
	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/derive"
	"github.com/yeisme/outputvault/pkg/internal/filestore"
	"github.com/yeisme/outputvault/pkg/internal/mediatools"
	"github.com/yeisme/outputvault/pkg/internal/pathmap"
	"github.com/yeisme/outputvault/pkg/internal/renderfarm"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/storage"
	"github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/scheduler"
)

// staleChildrenAge 衍生档案在 IN RENDER 停留超过该时长且无农场作业归属，
// 视为生成方崩溃遗留的孤儿.
const staleChildrenAge = 24 * time.Hour

// RegisterCronJobs 配置业务定时任务：
//   - 渲染农场启用时，按配置周期（默认 60 秒）轮询在渲染档案与农场作业的对账
//   - 每日清扫卡在 IN RENDER 的孤儿衍生档案，重置回 PENDING 重新排队
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(staleChildrenAge),
		gocron.NewTask(func() {
			runChildrenSweep(context.Background(), mgr)
		}),
		gocron.WithName(JobChildrenSweep),
	); err != nil {
		return fmt.Errorf("register %s: %w", JobChildrenSweep, err)
	}

	cfg := configs.GetConfig()
	if !cfg.RenderFarm.Enabled {
		log.Logger().Info().Msg("render farm disabled, poll job not registered")
		return nil
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.RenderFarm.GetPollInterval()),
		gocron.NewTask(func() {
			runRenderPoll(context.Background(), mgr)
		}),
		gocron.WithName(JobFarmRenderPoll),
	); err != nil {
		return fmt.Errorf("register %s: %w", JobFarmRenderPoll, err)
	}

	return nil
}

// runChildrenSweep 重置停留过久的孤儿衍生档案，重置动作会重新发布
// ov.children.new，由转码 worker 接力.
func runChildrenSweep(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobChildrenSweep).Logger()

	repo := newRepo(mgr)
	if repo == nil {
		l.Error().Msg("db not initialized, skip sweep")
		return
	}

	stale, err := repo.ListStaleChildrenInRender(ctx, time.Now().Add(-staleChildrenAge))
	if err != nil {
		l.Error().Err(err).Msg("list stale children failed")
		return
	}

	for _, f := range stale {
		if err := repo.ResetChildrenToPending(ctx, f.ID); err != nil {
			l.Error().Err(err).Str("file_id", f.ID).Msg("reset stale children failed")
		}
	}

	if len(stale) > 0 {
		l.Info().Int("count", len(stale)).Msg("stale children requeued")
	}
}

// runRenderPoll 执行一轮渲染作业对账.
// 登录失败整轮放弃，等待下个周期重试；单条档案的失败互不影响.
func runRenderPoll(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobFarmRenderPoll).Logger()

	repo := newRepo(mgr)
	if repo == nil {
		l.Error().Msg("db not initialized, skip poll cycle")
		return
	}

	cfg := configs.GetConfig()

	var cc *cache.Cache
	if kvc := mgr.GetKVClient(); kvc != nil {
		cc = cache.NewCache(kvc)
	}

	client := renderfarm.NewClient(cfg.RenderFarm, cfg.CircuitBreaker, cc)
	mapper := pathmap.New(cfg.Mounts)
	poller := renderfarm.NewPoller(repo, client, mapper, mgr.GetMQClient().Publisher(), cfg.RenderFarm)

	if err := poller.Poll(ctx); err != nil {
		l.Warn().Err(err).Msg("poll cycle aborted")
	}
}

// StartConsumers 启动事件消费者：
//   - ov.output.new -> 衍生规划（Derivation Policy）
//   - ov.children.new -> 衍生产物生成 worker
//
// MQ 未初始化时跳过（创建仍可用，流水线需人工触发规划）.
func StartConsumers(ctx context.Context, mgr *storage.Manager) error {
	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	mqc := mgr.GetMQClient()
	if mqc == nil || mqc.Subscriber() == nil {
		log.Logger().Warn().Msg("mq not initialized, derivation consumers not started")
		return nil
	}

	repo := newRepo(mgr)
	if repo == nil {
		return fmt.Errorf("db not initialized")
	}

	cfg := configs.GetConfig()
	mapper := pathmap.New(cfg.Mounts)

	var store filestore.Store
	if s3c := mgr.GetS3Client(); s3c != nil {
		store = filestore.NewS3Store(s3c)
	}

	dispatcher := derive.NewDispatcher(repo)
	worker := derive.NewWorker(repo, mediatools.New(), store, mapper, mqc.Publisher())

	go func() {
		if err := dispatcher.Run(ctx, mqc.Subscriber()); err != nil {
			log.Logger().Error().Err(err).Msg("derivation dispatcher stopped")
		}
	}()

	go func() {
		if err := worker.Run(ctx, mqc.Subscriber()); err != nil {
			log.Logger().Error().Err(err).Msg("derivation worker stopped")
		}
	}()

	return nil
}

// newRepo 从 storage manager 组装仓库；MQ 缺席时事件发布静默关闭.
func newRepo(mgr *storage.Manager) *repository.Repo {
	dbc := mgr.GetDBClient()
	if dbc == nil || dbc.GetDB() == nil {
		return nil
	}

	var pub repository.Publisher
	if mqc := mgr.GetMQClient(); mqc != nil {
		pub = mqc
	}

	return repository.New(dbc.GetDB(), pub)
}
