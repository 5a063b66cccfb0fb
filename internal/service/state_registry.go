package service

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/user/moviedex/internal/repository"
	"github.com/user/moviedex/internal/utils"
)

// StateRegistry 浏览器 id 到状态容器的映射；被淘汰的容器下次访问时从持久化偏好重建
type StateRegistry struct {
	catalog Catalog
	kv      repository.KVStore
	states  *utils.TTLCache[*MovieState]
	group   singleflight.Group
}

func NewStateRegistry(catalog Catalog, kv repository.KVStore, size int, idle time.Duration) (*StateRegistry, error) {
	states, err := utils.NewTTLCache[*MovieState](size, idle)
	if err != nil {
		return nil, fmt.Errorf("初始化状态缓存失败: %w", err)
	}
	return &StateRegistry{
		catalog: catalog,
		kv:      kv,
		states:  states,
	}, nil
}

// Get 返回浏览器对应的容器，不存在时创建；同一 id 的并发创建只执行一次。
// 偏好读取失败时不缓存容器，下次请求会重试
func (r *StateRegistry) Get(ctx context.Context, browserID string, ambientDark bool) (*MovieState, error) {
	if st, ok := r.states.Get(browserID); ok {
		st.SetAmbientDark(ambientDark)
		return st, nil
	}

	// 容器比请求活得久，创建过程不跟随请求取消
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(browserID, func() (interface{}, error) {
		if st, ok := r.states.Get(browserID); ok {
			return st, nil
		}
		prefs := repository.NewPreferenceRepository(r.kv, browserID)
		st, err := NewMovieState(buildCtx, r.catalog, prefs, ambientDark)
		if err != nil {
			return nil, fmt.Errorf("加载浏览器 %s 的偏好失败: %w", browserID, err)
		}
		r.states.Set(browserID, st)
		log.WithField("browser", browserID).Debug("[StateRegistry] 创建状态容器")
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	st := v.(*MovieState)
	st.SetAmbientDark(ambientDark)
	return st, nil
}

// Sweep 清理空闲超时的容器，返回清理数量
func (r *StateRegistry) Sweep() int {
	return r.states.Purge()
}

// Len 当前保存的容器数量
func (r *StateRegistry) Len() int {
	return r.states.Len()
}
