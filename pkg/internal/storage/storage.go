// Package storage 聚合持久化资源：数据库、对象存储、消息队列与 KV 缓存.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	s3Client := mgr.GetS3Client()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/model"
	dbc "github.com/yeisme/outputvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/outputvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/outputvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/outputvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/outputvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	MQ *mqc.Client
	KV *kvc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		_ = configs.GetConfig() // 确保配置已加载
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.DB = dbi

		if e := Migrate(dbi); e != nil {
			err = e

			return
		}

		// S3
		s3i, e := s3c.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.S3 = s3i

		// MQ
		mqi, e := mqc.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.MQ = mqi

		// KV
		kvi, e := kvc.NewKVClient(ctx)
		if e != nil {
			err = e

			return
		}

		m.KV = kvi

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// Migrate 建表与索引同步，幂等.
func Migrate(c *dbc.Client) error {
	if err := c.GetDB().AutoMigrate(
		&model.FileStatus{},
		&model.OutputType{},
		&model.WorkingFile{},
		&model.OutputFile{},
		&model.ChildrenFile{},
		&model.DependentFile{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}
