package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"
)

// Publisher 事件发布口，创建成功后的领域事件经此发出.
// storage/mq 的 Client 即满足该接口；测试中注入 fake.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Repo 持有数据库句柄与事件发布口.
// 发布口可为 nil（纯查询场景或事件总开关关闭时），此时创建事件静默跳过.
type Repo struct {
	db  *gorm.DB
	pub Publisher

	// 状态与输出类型按名称 memo，字典行建档后不再变化
	statusMu   sync.Mutex
	statusMemo map[string]string // name -> id
	typeMu     sync.Mutex
	typeMemo   map[string]string // name -> id
}

// publisherAdapter 把 ctx 风格的 Publisher 适配成 watermill 的发布接口，
// 供 queue 包的强类型发布助手使用.
type publisherAdapter struct {
	ctx context.Context
	pub Publisher
}

func (a publisherAdapter) Publish(topic string, msgs ...*message.Message) error {
	return a.pub.Publish(a.ctx, topic, msgs...)
}

func (a publisherAdapter) Close() error { return nil }

// New 构建仓库.
func New(db *gorm.DB, pub Publisher) *Repo {
	return &Repo{
		db:         db,
		pub:        pub,
		statusMemo: map[string]string{},
		typeMemo:   map[string]string{},
	}
}

// DB 暴露底层句柄，供需要手写查询的调用方使用.
func (r *Repo) DB() *gorm.DB { return r.db }

// isDuplicate 判断数据库错误是否为唯一约束冲突.
// gorm 的方言翻译并非所有驱动都开启，兜底做字符串匹配.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "constraint failed: unique")
}
