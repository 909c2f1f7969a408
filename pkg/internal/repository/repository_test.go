package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
)

func newTestRepo(t *testing.T) *repository.Repo {
	t.Helper()

	repo, _ := newTestRepoDB(t)

	return repo
}

func newTestRepoDB(t *testing.T) (*repository.Repo, *gorm.DB) {
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

	return repository.New(db, nil), db
}

func entityKey(repo *repository.Repo, t *testing.T, name string) repository.OutputGroupKey {
	t.Helper()

	ot, err := repo.GetOrCreateOutputType(context.Background(), "render", "rndr")
	if err != nil {
		t.Fatalf("output type: %v", err)
	}

	return repository.OutputGroupKey{
		Name:           name,
		Representation: "exr",
		EntityID:       "entity-1",
		OutputTypeID:   ot.ID,
		TaskTypeID:     "tasktype-1",
	}
}

// 顺序调用修订号解析，应从 1 起严格递增.
func TestNextOutputRevisionMonotonic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	for want := 1; want <= 3; want++ {
		rev, err := repo.NextOutputRevision(ctx, key, 0)
		if err != nil {
			t.Fatalf("NextOutputRevision: %v", err)
		}

		if rev != want {
			t.Fatalf("revision = %d, want %d", rev, want)
		}

		if _, err := repo.CreateOutputFile(ctx, key, rev, repository.OutputFilePayload{
			Extension: ".exr",
			Path:      "/prod/sh010/comp_v" + string(rune('0'+want)) + ".exr",
		}); err != nil {
			t.Fatalf("CreateOutputFile r%d: %v", rev, err)
		}
	}
}

// 显式修订号放行不改写.
func TestNextOutputRevisionExplicitOverride(t *testing.T) {
	repo := newTestRepo(t)
	key := entityKey(repo, t, "sh010_comp")

	rev, err := repo.NextOutputRevision(context.Background(), key, 42)
	if err != nil {
		t.Fatalf("NextOutputRevision: %v", err)
	}

	if rev != 42 {
		t.Errorf("revision = %d, want 42", rev)
	}
}

// 相同唯一元组的二次创建必须显式失败，不得静默复用.
func TestCreateOutputFileStrict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	if _, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/a.exr"}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/b.exr"})
	if !errors.Is(err, repository.ErrEntryAlreadyExists) {
		t.Errorf("err = %v, want ErrEntryAlreadyExists", err)
	}

	// 不同表现形式是另一个元组，允许同修订号共存
	key2 := key
	key2.Representation = "mov"

	if _, err := repo.CreateOutputFile(ctx, key2, 1, repository.OutputFilePayload{Path: "/p/a.mov"}); err != nil {
		t.Errorf("different representation should not conflict: %v", err)
	}
}

// 路径不是唯一约束：不同元组解析出相同路径必须都能入库.
func TestCreateOutputFilePathMayCoincide(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	keyA := entityKey(repo, t, "sh010_comp")
	keyB := entityKey(repo, t, "sh010_lighting")

	samePath := "/prod/sh010/render_v001.exr"

	if _, err := repo.CreateOutputFile(ctx, keyA, 1, repository.OutputFilePayload{Path: samePath}); err != nil {
		t.Fatalf("first tuple: %v", err)
	}

	if _, err := repo.CreateOutputFile(ctx, keyB, 1, repository.OutputFilePayload{Path: samePath}); err != nil {
		t.Errorf("second tuple with coinciding path rejected: %v", err)
	}
}

// 实体与实例两边都空时归属不明.
func TestOutputScopeAmbiguous(t *testing.T) {
	repo := newTestRepo(t)
	key := repository.OutputGroupKey{Name: "x", OutputTypeID: "ot", TaskTypeID: "tt"}

	_, err := repo.CreateOutputFile(context.Background(), key, 1, repository.OutputFilePayload{})
	if !errors.Is(err, repository.ErrAmbiguousScope) {
		t.Errorf("err = %v, want ErrAmbiguousScope", err)
	}
}

// (parent, kind) 唯一：同种衍生第二次建档失败.
func TestCreateChildrenFileUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	parent, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/a.exr"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}

	kind, err := repo.GetOrCreateOutputType(ctx, "thumb_high", "thumb_high")
	if err != nil {
		t.Fatalf("kind: %v", err)
	}

	if _, err := repo.CreateChildrenFile(ctx, parent.ID, kind.ID, "a_v001", "/p/children/a_v001.jpeg"); err != nil {
		t.Fatalf("first children: %v", err)
	}

	_, err = repo.CreateChildrenFile(ctx, parent.ID, kind.ID, "a_v001", "/p/children/a_v001.jpeg")
	if !errors.Is(err, repository.ErrEntryAlreadyExists) {
		t.Errorf("err = %v, want ErrEntryAlreadyExists", err)
	}
}

// 工作文件按路径幂等：两次登记返回同一行.
func TestCreateWorkingFileIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	taskID := "task-1"

	p := repository.WorkingFilePayload{
		Name:       "sh010_anim",
		Path:       "/prod/sh010/anim/sh010_anim_v001.ma",
		EntityID:   "entity-1",
		TaskID:     &taskID,
		TaskTypeID: "tasktype-1",
	}

	first, created, err := repo.CreateWorkingFile(ctx, p)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	second, created, err := repo.CreateWorkingFile(ctx, p)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if created {
		t.Error("second create should reuse the existing row")
	}

	if first.ID != second.ID {
		t.Errorf("got two rows: %s vs %s", first.ID, second.ID)
	}
}

// 工作文件修订号按 (entity, task, name) 自增.
func TestWorkingFileRevisionSequence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	taskID := "task-1"

	for i, path := range []string{"/w/v1.ma", "/w/v2.ma", "/w/v3.ma"} {
		f, _, err := repo.CreateWorkingFile(ctx, repository.WorkingFilePayload{
			Name:     "sh010_anim",
			Path:     path,
			EntityID: "entity-1",
			TaskID:   &taskID,
		})
		if err != nil {
			t.Fatalf("create %s: %v", path, err)
		}

		if f.Revision != i+1 {
			t.Errorf("revision = %d, want %d", f.Revision, i+1)
		}
	}
}

// CAS 抢占：只有 PENDING 能进 IN RENDER，终态不可重入.
func TestClaimChildrenFile(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	parent, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/a.exr"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}

	kind, _ := repo.GetOrCreateOutputType(ctx, "review_web", "review_web")

	child, err := repo.CreateChildrenFile(ctx, parent.ID, kind.ID, "a_v001", "/p/children/a_v001.mp4")
	if err != nil {
		t.Fatalf("create children: %v", err)
	}

	claimed, err := repo.ClaimChildrenFile(ctx, child.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	// 重复派发必须 no-op
	claimed, err = repo.ClaimChildrenFile(ctx, child.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}

	if claimed {
		t.Error("IN RENDER record must not be claimed again")
	}

	// 终态后同样不可重入
	if err := repo.MarkChildrenGenerated(ctx, child.ID, "/p/children/a_v001.mp4", 1024); err != nil {
		t.Fatalf("mark generated: %v", err)
	}

	claimed, _ = repo.ClaimChildrenFile(ctx, child.ID)
	if claimed {
		t.Error("GENERATED record must not be claimed")
	}

	// 显式重置后可以再次抢占
	if err := repo.ResetChildrenToPending(ctx, child.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	claimed, _ = repo.ClaimChildrenFile(ctx, child.ID)
	if !claimed {
		t.Error("PENDING after reset should be claimable")
	}
}

// 依赖文件按路径共享，多个输出引用同一行；重复挂接 no-op.
func TestDependentFileSharing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	a, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/a.exr"})
	if err != nil {
		t.Fatal(err)
	}

	b, err := repo.CreateOutputFile(ctx, key, 2, repository.OutputFilePayload{Path: "/p/b.exr"})
	if err != nil {
		t.Fatal(err)
	}

	texPath := "/prod/textures/wood.tx"
	sum := repository.ChecksumBytes([]byte("wood"))

	d1, err := repo.GetOrCreateDependentFile(ctx, a.ID, texPath, 10, sum)
	if err != nil {
		t.Fatalf("attach to a: %v", err)
	}

	d2, err := repo.GetOrCreateDependentFile(ctx, b.ID, texPath, 10, sum)
	if err != nil {
		t.Fatalf("attach to b: %v", err)
	}

	if d1.ID != d2.ID {
		t.Errorf("dependent rows differ: %s vs %s", d1.ID, d2.ID)
	}

	// 重复挂接
	if _, err := repo.GetOrCreateDependentFile(ctx, a.ID, texPath, 10, sum); err != nil {
		t.Errorf("duplicate attach should be no-op: %v", err)
	}

	deps, err := repo.ListDependentFiles(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(deps) != 1 {
		t.Errorf("len(deps) = %d, want 1", len(deps))
	}
}

// 状态字典 get-or-create 幂等.
func TestGetOrCreateStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s1, err := repo.GetOrCreateStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatal(err)
	}

	s2, err := repo.GetOrCreateStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatal(err)
	}

	if s1.ID != s2.ID {
		t.Errorf("status rows differ: %s vs %s", s1.ID, s2.ID)
	}
}

// 最新修订查询按 (name, representation) 分组取最大修订行.
func TestLastRevisionsForEntity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	for rev := 1; rev <= 3; rev++ {
		if _, err := repo.CreateOutputFile(ctx, key, rev, repository.OutputFilePayload{
			Path: "/p/a_v" + string(rune('0'+rev)) + ".exr",
		}); err != nil {
			t.Fatal(err)
		}
	}

	files, err := repo.LastRevisionsForEntity(ctx, "entity-1", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 1 {
		t.Fatalf("len = %d, want 1", len(files))
	}

	if files[0].Revision != 3 {
		t.Errorf("revision = %d, want 3", files[0].Revision)
	}
}

// 孤儿清扫只命中停留过久且无农场作业归属的 IN RENDER 档案.
func TestListStaleChildrenInRender(t *testing.T) {
	repo, db := newTestRepoDB(t)
	ctx := context.Background()
	key := entityKey(repo, t, "sh010_comp")

	parent, err := repo.CreateOutputFile(ctx, key, 1, repository.OutputFilePayload{Path: "/p/a.exr"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}

	newClaimed := func(kind string) *model.ChildrenFile {
		ot, err := repo.GetOrCreateOutputType(ctx, kind, kind)
		if err != nil {
			t.Fatalf("kind %s: %v", kind, err)
		}

		child, err := repo.CreateChildrenFile(ctx, parent.ID, ot.ID, "a_v001", "")
		if err != nil {
			t.Fatalf("create %s: %v", kind, err)
		}

		if claimed, err := repo.ClaimChildrenFile(ctx, child.ID); err != nil || !claimed {
			t.Fatalf("claim %s: claimed=%v err=%v", kind, claimed, err)
		}

		return child
	}

	orphan := newClaimed("thumb_high")
	farmed := newClaimed("review_high")
	fresh := newClaimed("review_web")

	if err := repo.SetChildrenRenderJob(ctx, farmed.ID, "muster", "4242"); err != nil {
		t.Fatalf("set render job: %v", err)
	}

	// 把前两条回拨到清扫窗口之外
	old := time.Now().Add(-48 * time.Hour)
	for _, id := range []string{orphan.ID, farmed.ID} {
		if err := db.Model(&model.ChildrenFile{}).Where("id = ?", id).
			UpdateColumn("updated_at", old).Error; err != nil {
			t.Fatalf("backdate %s: %v", id, err)
		}
	}

	stale, err := repo.ListStaleChildrenInRender(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}

	if len(stale) != 1 || stale[0].ID != orphan.ID {
		t.Fatalf("stale = %v, want only %s", stale, orphan.ID)
	}

	// 重置后可被重新抢占，fresh 不受影响
	if err := repo.ResetChildrenToPending(ctx, orphan.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if claimed, err := repo.ClaimChildrenFile(ctx, orphan.ID); err != nil || !claimed {
		t.Fatalf("reclaim after reset: claimed=%v err=%v", claimed, err)
	}

	if claimed, _ := repo.ClaimChildrenFile(ctx, fresh.ID); claimed {
		t.Error("fresh IN RENDER record must stay claimed")
	}
}
