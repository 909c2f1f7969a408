package derive_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/outputvault/pkg/internal/derive"
	"github.com/yeisme/outputvault/pkg/internal/filestore"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/sequence"
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

func createParent(t *testing.T, repo *repository.Repo, typeShortName, path string) *model.OutputFile {
	t.Helper()

	ctx := context.Background()

	ot, err := repo.GetOrCreateOutputType(ctx, typeShortName, typeShortName)
	if err != nil {
		t.Fatalf("output type: %v", err)
	}

	key := repository.OutputGroupKey{
		Name:         "sh010",
		EntityID:     "entity-1",
		OutputTypeID: ot.ID,
		TaskTypeID:   "tasktype-1",
	}

	f, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: path})
	if err != nil {
		t.Fatalf("create output file: %v", err)
	}

	return f
}

func kindSet(kinds []derive.Kind) map[derive.Kind]bool {
	set := make(map[derive.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}

	return set
}

// plate 类型序列帧：基础三件套加 proxy_exr，每次求值结果一致.
func TestKindsForPlate(t *testing.T) {
	kinds := derive.KindsFor("plate", "/mnt/prod/sh010.%04d.exr [1001-1050]", model.StatusWaiting)

	want := []derive.Kind{derive.KindThumbHigh, derive.KindThumbLow, derive.KindReviewWeb, derive.KindProxyExr}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}

	set := kindSet(kinds)
	for _, k := range want {
		if !set[k] {
			t.Fatalf("missing kind %s in %v", k, kinds)
		}
	}

	again := derive.KindsFor("plate", "/mnt/prod/sh010.%04d.exr [1001-1050]", model.StatusWaiting)
	if len(again) != len(kinds) {
		t.Fatalf("plan not deterministic: %v vs %v", again, kinds)
	}
}

func TestKindsForSkipsInRender(t *testing.T) {
	if kinds := derive.KindsFor("plate", "/mnt/prod/sh010.%04d.exr", model.StatusInRender); kinds != nil {
		t.Fatalf("expected no kinds for an in-render source, got %v", kinds)
	}
}

// 制作端的全部媒体格式（含摄影机原始与分层文件）都应触发派生.
func TestKindsForRecognizedFormats(t *testing.T) {
	for _, path := range []string{
		"/mnt/prod/sh010.mxf",
		"/mnt/prod/sh010.webm",
		"/mnt/prod/sh010.r3d",
		"/mnt/prod/sh010.psd",
		"/mnt/prod/sh010.ari",
		"/mnt/prod/sh010.bmp",
	} {
		if kinds := derive.KindsFor("base_render", path, model.StatusWaiting); len(kinds) == 0 {
			t.Fatalf("no derivation planned for %s", path)
		}
	}
}

func TestKindsForSkipsUnknownExtension(t *testing.T) {
	if kinds := derive.KindsFor("cache", "/mnt/prod/sh010.abc", model.StatusWaiting); kinds != nil {
		t.Fatalf("expected no kinds for unrecognized extension, got %v", kinds)
	}
}

// cgi_render 序列帧派生 5 件产物；重复规划不再新建.
func TestPlanChildrenCgiRender(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	parent := createParent(t, repo, "cgi_render", "/mnt/prod/sh010.%04d.exr [1001-1050]")

	policy := derive.NewPolicy(repo)

	created, err := policy.PlanChildren(ctx, parent)
	if err != nil {
		t.Fatalf("plan children: %v", err)
	}

	if len(created) != 5 {
		t.Fatalf("got %d children, want 5", len(created))
	}

	again, err := policy.PlanChildren(ctx, parent)
	if err != nil {
		t.Fatalf("re-plan children: %v", err)
	}

	if len(again) != 0 {
		t.Fatalf("re-plan created %d children, want 0", len(again))
	}

	all, err := repo.ListChildrenFiles(ctx, parent.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}

	if len(all) != 5 {
		t.Fatalf("got %d children rows, want 5", len(all))
	}
}

// fakeTools 记录调用并伪造产物落盘，让校验通过.
type fakeTools struct {
	calls []string
	fail  bool
}

func (f *fakeTools) record(op, out string) error {
	f.calls = append(f.calls, op)

	if f.fail {
		return fmt.Errorf("%s: simulated failure", op)
	}

	return os.WriteFile(out, []byte("media"), 0o644)
}

func (f *fakeTools) ResizeImage(_ context.Context, _, out string, _ int) error {
	return f.record("resize", out)
}

func (f *fakeTools) ReencodeSequence(_ context.Context, _, outPattern string, start, end int, _ string) error {
	f.calls = append(f.calls, fmt.Sprintf("reencode %d-%d", start, end))

	if f.fail {
		return fmt.Errorf("reencode: simulated failure")
	}

	for frame := start; frame <= end; frame++ {
		if err := os.WriteFile(sequence.FramePath(outPattern, frame), []byte("frame"), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeTools) TranscodeWeb(_ context.Context, _, out string, _ int) error {
	return f.record("web", out)
}

func (f *fakeTools) TranscodeHigh(_ context.Context, _, out string, _ int) error {
	return f.record("high", out)
}

func (f *fakeTools) ExtractStill(_ context.Context, _, out string) error {
	return f.record("still", out)
}

// fakeStore 记录槽位写入及其归属.
type fakeStore struct {
	pictures map[filestore.Slot]string
	movies   map[filestore.Slot]string
	owners   map[filestore.Slot]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pictures: make(map[filestore.Slot]string),
		movies:   make(map[filestore.Slot]string),
		owners:   make(map[filestore.Slot]string),
	}
}

func (s *fakeStore) AddPicture(_ context.Context, slot filestore.Slot, ownerID, localPath string) error {
	s.pictures[slot] = localPath
	s.owners[slot] = ownerID

	return nil
}

func (s *fakeStore) AddMovie(_ context.Context, slot filestore.Slot, ownerID, localPath string) error {
	s.movies[slot] = localPath
	s.owners[slot] = ownerID

	return nil
}

func (s *fakeStore) PicturePath(slot filestore.Slot, ownerID string) string {
	return string(slot) + "/" + ownerID + ".png"
}

func (s *fakeStore) RemovePictures(context.Context, string, ...filestore.Slot) error {
	return nil
}

func childOfKind(t *testing.T, repo *repository.Repo, parentID string, kind derive.Kind) *model.ChildrenFile {
	t.Helper()

	ctx := context.Background()

	all, err := repo.ListChildrenFiles(ctx, parentID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}

	for i := range all {
		ot, err := repo.GetOutputType(ctx, all[i].OutputTypeID)
		if err != nil {
			t.Fatalf("output type: %v", err)
		}

		if ot.ShortName == string(kind) {
			return &all[i]
		}
	}

	t.Fatalf("no child of kind %s", kind)

	return nil
}

func childStatus(t *testing.T, repo *repository.Repo, id string) model.StatusName {
	t.Helper()

	ctx := context.Background()

	f, err := repo.GetChildrenFile(ctx, id)
	if err != nil {
		t.Fatalf("get children file: %v", err)
	}

	name, err := repo.StatusNameByID(ctx, f.FileStatusID)
	if err != nil {
		t.Fatalf("status name: %v", err)
	}

	return name
}

// 单帧图片的高清缩略图：生成、校验、槽位上传、终态 GENERATED.
func TestWorkerGeneratesThumbnail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "sh010.exr")
	if err := os.WriteFile(src, []byte("exr"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	parent := createParent(t, repo, "base_render", src)

	if _, err := derive.NewPolicy(repo).PlanChildren(ctx, parent); err != nil {
		t.Fatalf("plan children: %v", err)
	}

	child := childOfKind(t, repo, parent.ID, derive.KindThumbHigh)

	tools := &fakeTools{}
	store := newFakeStore()
	worker := derive.NewWorker(repo, tools, store, nil, nil)

	if err := worker.Process(ctx, child.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := childStatus(t, repo, child.ID); got != model.StatusGenerated {
		t.Fatalf("status = %s, want %s", got, model.StatusGenerated)
	}

	updated, err := repo.GetChildrenFile(ctx, child.ID)
	if err != nil {
		t.Fatalf("get children file: %v", err)
	}

	wantPath := filepath.ToSlash(filepath.Join(dir, "children", "sh010_v001.thumb_high.jpeg"))
	if updated.Path != wantPath {
		t.Fatalf("path = %q, want %q", updated.Path, wantPath)
	}

	if updated.Size == 0 {
		t.Fatal("size not persisted")
	}

	if store.pictures[filestore.SlotOriginal] != wantPath {
		t.Fatalf("thumb_high not stored under original slot: %v", store.pictures)
	}

	// 槽位按父输出文件归属，而非父文件的实体
	if got := store.owners[filestore.SlotOriginal]; got != parent.ID {
		t.Fatalf("slot owner = %q, want parent file id %q", got, parent.ID)
	}

	// 重复投递：档案已前移，抢占失败即 no-op，不再调用工具
	before := len(tools.calls)

	if err := worker.Process(ctx, child.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}

	if len(tools.calls) != before {
		t.Fatalf("redelivery invoked tools again: %v", tools.calls)
	}
}

// 两档缩略图扩展名相同，落盘名称靠种类段区分，互不覆盖.
func TestWorkerThumbnailKindsDoNotCollide(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "sh010.exr")
	if err := os.WriteFile(src, []byte("exr"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	parent := createParent(t, repo, "base_render", src)

	if _, err := derive.NewPolicy(repo).PlanChildren(ctx, parent); err != nil {
		t.Fatalf("plan children: %v", err)
	}

	high := childOfKind(t, repo, parent.ID, derive.KindThumbHigh)
	low := childOfKind(t, repo, parent.ID, derive.KindThumbLow)

	worker := derive.NewWorker(repo, &fakeTools{}, newFakeStore(), nil, nil)

	if err := worker.Process(ctx, high.ID); err != nil {
		t.Fatalf("process thumb_high: %v", err)
	}

	if err := worker.Process(ctx, low.ID); err != nil {
		t.Fatalf("process thumb_low: %v", err)
	}

	highDone, err := repo.GetChildrenFile(ctx, high.ID)
	if err != nil {
		t.Fatalf("get thumb_high: %v", err)
	}

	lowDone, err := repo.GetChildrenFile(ctx, low.ID)
	if err != nil {
		t.Fatalf("get thumb_low: %v", err)
	}

	if highDone.Path == lowDone.Path {
		t.Fatalf("thumbnail kinds share destination %q", highDone.Path)
	}

	for _, p := range []string{highDone.Path, lowDone.Path} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("artifact %q missing or empty: %v", p, err)
		}
	}
}

// 序列帧代理：一次重编码覆盖整个帧范围，逐帧校验后落库带范围后缀的模式路径.
func TestWorkerProxyReencode(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	dir := t.TempDir()

	srcPattern := filepath.ToSlash(filepath.Join(dir, "sh010.%04d.exr"))
	parent := createParent(t, repo, "cgi_render", fmt.Sprintf("%s [1001-1050]", srcPattern))

	if _, err := derive.NewPolicy(repo).PlanChildren(ctx, parent); err != nil {
		t.Fatalf("plan children: %v", err)
	}

	child := childOfKind(t, repo, parent.ID, derive.KindProxyExr)

	tools := &fakeTools{}
	worker := derive.NewWorker(repo, tools, newFakeStore(), nil, nil)

	if err := worker.Process(ctx, child.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(tools.calls) != 1 || tools.calls[0] != "reencode 1001-1050" {
		t.Fatalf("expected a single full-range re-encode, got %v", tools.calls)
	}

	updated, err := repo.GetChildrenFile(ctx, child.ID)
	if err != nil {
		t.Fatalf("get children file: %v", err)
	}

	wantPath := filepath.ToSlash(filepath.Join(dir, "children", "sh010_v001.proxy_exr.%04d.exr")) + " [1001-1050]"
	if updated.Path != wantPath {
		t.Fatalf("path = %q, want %q", updated.Path, wantPath)
	}

	if got := childStatus(t, repo, child.ID); got != model.StatusGenerated {
		t.Fatalf("status = %s, want %s", got, model.StatusGenerated)
	}
}

// 工具失败：档案终结为 FAILED，不会卡在 IN RENDER.
func TestWorkerFailureMarksFailed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "sh010.exr")
	if err := os.WriteFile(src, []byte("exr"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	parent := createParent(t, repo, "base_render", src)

	if _, err := derive.NewPolicy(repo).PlanChildren(ctx, parent); err != nil {
		t.Fatalf("plan children: %v", err)
	}

	child := childOfKind(t, repo, parent.ID, derive.KindReviewWeb)

	worker := derive.NewWorker(repo, &fakeTools{fail: true}, newFakeStore(), nil, nil)

	err := worker.Process(ctx, child.ID)
	if err == nil || !strings.Contains(err.Error(), "simulated failure") {
		t.Fatalf("expected tool failure, got %v", err)
	}

	if got := childStatus(t, repo, child.ID); got != model.StatusFailed {
		t.Fatalf("status = %s, want %s", got, model.StatusFailed)
	}
}

// 源路径为空：直接 FAILED.
func TestWorkerEmptySourcePath(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parent := createParent(t, repo, "cgi_render", "")

	ot, err := repo.GetOrCreateOutputType(ctx, string(derive.KindThumbHigh), string(derive.KindThumbHigh))
	if err != nil {
		t.Fatalf("output type: %v", err)
	}

	child, err := repo.CreateChildrenFile(ctx, parent.ID, ot.ID, parent.Name, "")
	if err != nil {
		t.Fatalf("create children file: %v", err)
	}

	worker := derive.NewWorker(repo, &fakeTools{}, newFakeStore(), nil, nil)

	if err := worker.Process(ctx, child.ID); err == nil {
		t.Fatal("expected error for empty source path")
	}

	if got := childStatus(t, repo, child.ID); got != model.StatusFailed {
		t.Fatalf("status = %s, want %s", got, model.StatusFailed)
	}
}
