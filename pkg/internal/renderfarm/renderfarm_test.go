package renderfarm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/renderfarm"
	"github.com/yeisme/outputvault/pkg/internal/repository"
)

func newTestRepo(t *testing.T) *repository.Repo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&model.FileStatus{},
		&model.OutputType{},
		&model.WorkingFile{},
		&model.OutputFile{},
		&model.ChildrenFile{},
		&model.DependentFile{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return repository.New(db, nil)
}

func farmConfig() configs.RenderFarmConfig {
	return configs.RenderFarmConfig{
		Enabled:             true,
		RequeueLimit:        10,
		PollIntervalSeconds: 60,
		RequestTimeout:      15,
	}
}

// fakeManager 按作业号返回预置分块清单.
type fakeManager struct {
	loginErr error
	chunks   map[string][]renderfarm.Chunk
	logins   int
}

func (m *fakeManager) Login(context.Context) error {
	m.logins++
	return m.loginErr
}

func (m *fakeManager) Logout(context.Context) {}

func (m *fakeManager) GetJob(context.Context, string) (*renderfarm.Job, error) {
	return nil, renderfarm.ErrJobNotFound
}

func (m *fakeManager) GetChunks(_ context.Context, jobID string) ([]renderfarm.Chunk, error) {
	return m.chunks[jobID], nil
}

func (m *fakeManager) RequeueChunk(context.Context, string, int) error { return nil }
func (m *fakeManager) KillAndPause(context.Context, string) error      { return nil }

func (m *fakeManager) SubmitJob(context.Context, renderfarm.JobSpec) (string, error) {
	return "", nil
}

func (m *fakeManager) Pools(context.Context) ([]string, error)     { return nil, nil }
func (m *fakeManager) Instances(context.Context) ([]string, error) { return nil, nil }

func inRenderOutput(t *testing.T, repo *repository.Repo, path, jobID string) *model.OutputFile {
	t.Helper()

	ctx := context.Background()

	ot, err := repo.GetOrCreateOutputType(ctx, "cgi_render", "cgi_render")
	if err != nil {
		t.Fatalf("output type: %v", err)
	}

	key := repository.OutputGroupKey{
		Name:         "sh010",
		EntityID:     "entity-1",
		OutputTypeID: ot.ID,
		TaskTypeID:   "tasktype-1",
	}

	f, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{
		Path:   path,
		Status: model.StatusInRender,
	})
	if err != nil {
		t.Fatalf("create output file: %v", err)
	}

	if err := repo.SetOutputRenderJob(ctx, f.ID, renderfarm.OwnerMuster, jobID); err != nil {
		t.Fatalf("set render job: %v", err)
	}

	return f
}

func outputStatus(t *testing.T, repo *repository.Repo, id string) model.StatusName {
	t.Helper()

	ctx := context.Background()

	f, err := repo.GetOutputFile(ctx, id)
	if err != nil {
		t.Fatalf("get output file: %v", err)
	}

	name, err := repo.StatusNameByID(ctx, f.FileStatusID)
	if err != nil {
		t.Fatalf("status name: %v", err)
	}

	return name
}

// 登录失败整轮放弃，档案保持 IN RENDER.
func TestPollLoginFailureAbortsCycle(t *testing.T) {
	repo := newTestRepo(t)
	f := inRenderOutput(t, repo, "/mnt/prod/sh010.exr", "7")

	mgr := &fakeManager{loginErr: renderfarm.ErrServiceUnavailable}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(context.Background()); err == nil {
		t.Fatal("expected poll error on login failure")
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusInRender {
		t.Fatalf("status = %s, want %s", got, model.StatusInRender)
	}
}

// 作业不在队列中（无分块）视为被移除，档案判定 RENDER FAILED.
func TestPollRemovedJob(t *testing.T) {
	repo := newTestRepo(t)
	f := inRenderOutput(t, repo, "/mnt/prod/sh010.exr", "7")

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusRenderFailed {
		t.Fatalf("status = %s, want %s", got, model.StatusRenderFailed)
	}
}

// 分块重排队达到上限即判定失败.
func TestPollRequeueLimit(t *testing.T) {
	repo := newTestRepo(t)
	f := inRenderOutput(t, repo, "/mnt/prod/sh010.exr", "7")

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{
		"7": {
			{ID: 1, Status: renderfarm.ChunkCompleted},
			{ID: 2, Status: renderfarm.ChunkSubmitted, Requeued: 10},
		},
	}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusRenderFailed {
		t.Fatalf("status = %s, want %s", got, model.StatusRenderFailed)
	}
}

// 部分完成写回进度，状态保持 IN RENDER.
func TestPollProgress(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := inRenderOutput(t, repo, "/mnt/prod/sh010.exr", "7")

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{
		"7": {
			{ID: 1, Status: renderfarm.ChunkCompleted},
			{ID: 2, Status: renderfarm.ChunkWarning},
			{ID: 3, Status: renderfarm.ChunkSubmitted},
			{ID: 4, Status: renderfarm.ChunkOnHold},
		},
	}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusInRender {
		t.Fatalf("status = %s, want %s", got, model.StatusInRender)
	}

	updated, err := repo.GetOutputFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("get output file: %v", err)
	}

	data, err := model.DecodeData(updated.DataJSON)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}

	if got := data["render_progress"]; got != float64(50) {
		t.Fatalf("render_progress = %v, want 50", got)
	}
}

// 全部分块终态且单文件产物完整落盘：回到 WAITING 交还衍生流水线.
func TestPollCompletedOutput(t *testing.T) {
	repo := newTestRepo(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "sh010.exr")
	if err := os.WriteFile(path, []byte("exr"), 0o644); err != nil {
		t.Fatalf("write rendered file: %v", err)
	}

	f := inRenderOutput(t, repo, path, "7")

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{
		"7": {
			{ID: 1, Status: renderfarm.ChunkCompleted},
			{ID: 2, Status: renderfarm.ChunkError},
		},
	}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusWaiting {
		t.Fatalf("status = %s, want %s", got, model.StatusWaiting)
	}
}

// 作业完成但序列缺帧：验收不通过，判定 RENDER FAILED.
func TestPollCompletedMissingFrame(t *testing.T) {
	repo := newTestRepo(t)
	dir := t.TempDir()

	pattern := filepath.ToSlash(filepath.Join(dir, "sh010.%04d.exr"))
	for frame := 1001; frame <= 1050; frame++ {
		if frame == 1032 {
			continue
		}

		p := fmt.Sprintf(filepath.Join(dir, "sh010.%04d.exr"), frame)
		if err := os.WriteFile(p, []byte("frame"), 0o644); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	f := inRenderOutput(t, repo, fmt.Sprintf("%s [1001-1050]", pattern), "7")

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{
		"7": {{ID: 1, Status: renderfarm.ChunkCompleted}},
	}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if got := outputStatus(t, repo, f.ID); got != model.StatusRenderFailed {
		t.Fatalf("status = %s, want %s", got, model.StatusRenderFailed)
	}
}

// 衍生文件作业完成：档案置 GENERATED 并记录产物尺寸.
func TestPollCompletedChildren(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	dir := t.TempDir()

	parent := inRenderOutput(t, repo, "/mnt/prod/sh010.exr", "7")

	childPath := filepath.Join(dir, "sh010_v001.mov")
	if err := os.WriteFile(childPath, []byte("dnxhd"), 0o644); err != nil {
		t.Fatalf("write rendered children: %v", err)
	}

	ot, err := repo.GetOrCreateOutputType(ctx, "review_high", "review_high")
	if err != nil {
		t.Fatalf("output type: %v", err)
	}

	child, err := repo.CreateChildrenFile(ctx, parent.ID, ot.ID, parent.Name, childPath)
	if err != nil {
		t.Fatalf("create children file: %v", err)
	}

	if ok, err := repo.ClaimChildrenFile(ctx, child.ID); err != nil || !ok {
		t.Fatalf("claim children: ok=%v err=%v", ok, err)
	}

	if err := repo.SetChildrenRenderJob(ctx, child.ID, renderfarm.OwnerMuster, "8"); err != nil {
		t.Fatalf("set children render job: %v", err)
	}

	mgr := &fakeManager{chunks: map[string][]renderfarm.Chunk{
		"7": {{ID: 1, Status: renderfarm.ChunkSubmitted}},
		"8": {{ID: 1, Status: renderfarm.ChunkCompleted}},
	}}
	poller := renderfarm.NewPoller(repo, mgr, nil, nil, farmConfig())

	if err := poller.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}

	updated, err := repo.GetChildrenFile(ctx, child.ID)
	if err != nil {
		t.Fatalf("get children file: %v", err)
	}

	name, err := repo.StatusNameByID(ctx, updated.FileStatusID)
	if err != nil {
		t.Fatalf("status name: %v", err)
	}

	if name != model.StatusGenerated {
		t.Fatalf("status = %s, want %s", name, model.StatusGenerated)
	}

	if updated.Size == 0 {
		t.Fatal("size not recorded")
	}
}

func TestParseLegacyRenderInfo(t *testing.T) {
	owner, jobID, ok := renderfarm.ParseLegacyRenderInfo("MUSTER:4521")
	if !ok || owner != "muster" || jobID != "4521" {
		t.Fatalf("got (%q, %q, %v)", owner, jobID, ok)
	}

	if _, _, ok := renderfarm.ParseLegacyRenderInfo("4521"); ok {
		t.Fatal("expected parse failure without owner prefix")
	}

	if _, _, ok := renderfarm.ParseLegacyRenderInfo("MUSTER:"); ok {
		t.Fatal("expected parse failure on empty job id")
	}
}

func TestChunkStatusRoundTrip(t *testing.T) {
	for _, s := range []renderfarm.ChunkStatus{
		renderfarm.ChunkOnHold, renderfarm.ChunkSubmitted,
		renderfarm.ChunkCompleted, renderfarm.ChunkWarning, renderfarm.ChunkError,
	} {
		parsed, ok := renderfarm.ParseChunkStatus(s.String())
		if !ok || parsed != s {
			t.Fatalf("round trip failed for %s", s)
		}
	}

	if !renderfarm.ChunkError.Terminal() || renderfarm.ChunkSubmitted.Terminal() {
		t.Fatal("terminal classification wrong")
	}
}

func TestJobStatusRoundTrip(t *testing.T) {
	parsed, ok := renderfarm.ParseJobStatus("JOB_COMPLETED")
	if !ok || parsed != renderfarm.JobCompleted {
		t.Fatalf("got (%v, %v)", parsed, ok)
	}

	if _, ok := renderfarm.ParseJobStatus("NOT_A_STATUS"); ok {
		t.Fatal("expected unknown status to fail")
	}
}

// 客户端对 Muster REST 壳的解码.
func TestClientLoginAndChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			if r.URL.Query().Get("userName") != "admin" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			fmt.Fprint(w, `{"ResponseData":{"authToken":"tok-1"}}`)
		case "/api/chunks/list":
			if r.URL.Query().Get("authToken") != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			fmt.Fprint(w, `{"ResponseData":{"chunks":[{"chunkId":1,"status":4,"requeued":0},{"chunkId":2,"status":2,"requeued":3}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := farmConfig()
	cfg.Endpoint = srv.URL
	cfg.Username = "admin"

	cli := renderfarm.NewClient(cfg, configs.CircuitBreakerConfig{}, nil)
	ctx := context.Background()

	if err := cli.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}

	chunks, err := cli.GetChunks(ctx, "7")
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if chunks[0].Status != renderfarm.ChunkCompleted || chunks[1].Requeued != 3 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestClientLoginUnavailable(t *testing.T) {
	cfg := farmConfig()
	cfg.Endpoint = "http://127.0.0.1:1"

	cli := renderfarm.NewClient(cfg, configs.CircuitBreakerConfig{}, nil)

	err := cli.Login(context.Background())
	if err == nil {
		t.Fatal("expected login failure")
	}
}
