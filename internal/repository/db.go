package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/user/moviedex/internal/model"
)

// KVStore 按浏览器隔离的键值存储，写入总是整体覆盖
type KVStore interface {
	Get(ctx context.Context, browserID, key string) (string, bool, error)
	Set(ctx context.Context, browserID, key, value string) error
}

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// GormKV PostgreSQL 持久化的偏好存储
type GormKV struct {
	db *gorm.DB
}

// NewGormKV 在已有连接上创建 gorm 实例并迁移 preferences 表
func NewGormKV(sqlDB *sql.DB) (*GormKV, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("初始化 gorm 失败: %w", err)
	}
	if err := db.AutoMigrate(&model.Preference{}); err != nil {
		return nil, fmt.Errorf("迁移 preferences 表失败: %w", err)
	}
	return &GormKV{db: db}, nil
}

func (r *GormKV) Get(ctx context.Context, browserID, key string) (string, bool, error) {
	var prefs []model.Preference
	err := r.db.WithContext(ctx).
		Where("browser_id = ? AND key = ?", browserID, key).
		Limit(1).
		Find(&prefs).Error
	if err != nil {
		return "", false, err
	}
	if len(prefs) == 0 {
		return "", false, nil
	}
	return prefs[0].Value, true, nil
}

func (r *GormKV) Set(ctx context.Context, browserID, key, value string) error {
	pref := &model.Preference{
		BrowserID: browserID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "browser_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(pref).Error
}

// MemoryKV 进程内存储，未配置数据库时使用，进程退出即丢失
type MemoryKV struct {
	c *cache.Cache
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(_ context.Context, browserID, key string) (string, bool, error) {
	v, ok := m.c.Get(memoryKey(browserID, key))
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected value type %T", v)
	}
	return s, true, nil
}

func (m *MemoryKV) Set(_ context.Context, browserID, key, value string) error {
	m.c.Set(memoryKey(browserID, key), value, cache.NoExpiration)
	return nil
}

func memoryKey(browserID, key string) string {
	return browserID + ":" + key
}
