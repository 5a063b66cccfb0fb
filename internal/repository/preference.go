package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apex/log"

	"github.com/user/moviedex/internal/model"
)

// 持久化键名，与前端 localStorage 保持一致
const (
	KeyFavorites = "favoriteMovies"
	KeyLastQuery = "lastSearchQuery"
	KeyDarkMode  = "darkMode"
)

// ErrMalformedValue 存储中的值无法解析，读取方按缺失处理
var ErrMalformedValue = errors.New("malformed stored value")

// PreferenceRepository 单个浏览器的偏好读写
type PreferenceRepository struct {
	store     KVStore
	browserID string
}

func NewPreferenceRepository(store KVStore, browserID string) *PreferenceRepository {
	return &PreferenceRepository{store: store, browserID: browserID}
}

// LoadFavorites 读取收藏列表；数据损坏时返回空列表，存储不可用时返回错误
func (r *PreferenceRepository) LoadFavorites(ctx context.Context) ([]model.Movie, error) {
	raw, ok, err := r.read(ctx, KeyFavorites)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Movie{}, nil
	}
	movies, err := decodeFavorites(raw)
	if err != nil {
		r.logger(KeyFavorites).WithError(err).Debug("[Preferences] 收藏数据损坏，按空处理")
		return []model.Movie{}, nil
	}
	return movies, nil
}

// SaveFavorites 整体覆盖收藏列表
func (r *PreferenceRepository) SaveFavorites(ctx context.Context, movies []model.Movie) error {
	if movies == nil {
		movies = []model.Movie{}
	}
	data, err := json.Marshal(movies)
	if err != nil {
		return fmt.Errorf("序列化收藏失败: %w", err)
	}
	return r.store.Set(ctx, r.browserID, KeyFavorites, string(data))
}

// LoadLastQuery 读取上次搜索词
func (r *PreferenceRepository) LoadLastQuery(ctx context.Context) (string, bool, error) {
	raw, ok, err := r.read(ctx, KeyLastQuery)
	if err != nil {
		return "", false, err
	}
	if !ok || raw == "" {
		return "", false, nil
	}
	return raw, true, nil
}

// SaveLastQuery 保存搜索词（纯字符串，不做 JSON 编码）
func (r *PreferenceRepository) SaveLastQuery(ctx context.Context, query string) error {
	return r.store.Set(ctx, r.browserID, KeyLastQuery, query)
}

// LoadTheme 读取主题设置，缺失或损坏时 ok 为 false，由调用方回退到系统偏好
func (r *PreferenceRepository) LoadTheme(ctx context.Context) (dark bool, ok bool, err error) {
	raw, found, err := r.read(ctx, KeyDarkMode)
	if err != nil || !found {
		return false, false, err
	}
	dark, derr := decodeTheme(raw)
	if derr != nil {
		r.logger(KeyDarkMode).WithError(derr).Debug("[Preferences] 主题数据损坏，按缺失处理")
		return false, false, nil
	}
	return dark, true, nil
}

// SaveTheme 保存主题（JSON 布尔值）
func (r *PreferenceRepository) SaveTheme(ctx context.Context, dark bool) error {
	data, _ := json.Marshal(dark)
	return r.store.Set(ctx, r.browserID, KeyDarkMode, string(data))
}

func (r *PreferenceRepository) read(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := r.store.Get(ctx, r.browserID, key)
	if err != nil {
		return "", false, fmt.Errorf("读取偏好 %s 失败: %w", key, err)
	}
	return raw, ok, nil
}

func (r *PreferenceRepository) logger(key string) *log.Entry {
	return log.WithFields(log.Fields{"browser": r.browserID, "key": key})
}

func decodeFavorites(raw string) ([]model.Movie, error) {
	var movies []model.Movie
	if err := json.Unmarshal([]byte(raw), &movies); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	if movies == nil {
		return []model.Movie{}, nil
	}

	// 去掉重复 id，保证集合语义
	seen := make(map[int]struct{}, len(movies))
	out := movies[:0]
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

func decodeTheme(raw string) (bool, error) {
	var dark bool
	if err := json.Unmarshal([]byte(raw), &dark); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return dark, nil
}
