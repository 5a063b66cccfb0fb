package service

import (
	"context"
	"time"

	"github.com/apex/log"
)

// Sweeper 可被定期清理的对象
type Sweeper interface {
	Sweep() int
}

// CleanupService 清理服务
type CleanupService struct {
	target   Sweeper
	interval time.Duration
}

// NewCleanupService 创建清理服务
func NewCleanupService(target Sweeper, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupService{target: target, interval: interval}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce()
			}
		}
	}()
}

// RunOnce 执行一次清理
func (s *CleanupService) RunOnce() int {
	removed := s.target.Sweep()
	if removed > 0 {
		log.WithField("removed", removed).Info("[CleanupService] 已清理空闲的状态容器")
	}
	return removed
}
