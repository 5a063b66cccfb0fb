package service

import (
	"context"
	"strings"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/user/moviedex/internal/model"
)

// 展示给用户的固定错误信息
const (
	MsgTrendingFailed = "Failed to fetch trending movies. Please try again later."
	MsgSearchFailed   = "Failed to search movies. Please try again later."
	MsgDetailsFailed  = "Failed to load movie details."
)

// Mode 分页上下文
type Mode string

const (
	ModeTrending Mode = "trending"
	ModeSearch   Mode = "search"
)

// ParseMode 解析分页上下文，未知值返回 false
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeTrending, ModeSearch:
		return Mode(s), true
	}
	return "", false
}

// Catalog 远程目录
type Catalog interface {
	Search(ctx context.Context, query string, page int) (*model.MoviePage, error)
	Trending(ctx context.Context, page int) (*model.MoviePage, error)
	Details(ctx context.Context, movieID int) (*model.MovieDetails, error)
	Genres(ctx context.Context) ([]model.Genre, error)
}

// Preferences 本地持久化偏好
type Preferences interface {
	LoadFavorites(ctx context.Context) ([]model.Movie, error)
	SaveFavorites(ctx context.Context, movies []model.Movie) error
	LoadLastQuery(ctx context.Context) (string, bool, error)
	SaveLastQuery(ctx context.Context, query string) error
	LoadTheme(ctx context.Context) (bool, bool, error)
	SaveTheme(ctx context.Context, dark bool) error
}

// DisplayError 已转换为固定提示语的错误
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string { return e.Message }

func (e *DisplayError) Unwrap() error { return e.Cause }

// pageState 单个分页上下文（搜索或热门）
type pageState struct {
	query      string
	results    []model.Movie
	page       int
	totalPages int
	loading    bool
	seq        uint64
}

// PageInfo 分页上下文的只读视图
type PageInfo struct {
	Query      string        `json:"query,omitempty"`
	Results    []model.Movie `json:"results"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Loading    bool          `json:"loading"`
}

// HasMore 是否还能加载下一页
func (p PageInfo) HasMore() bool {
	return !p.Loading && p.Page < p.TotalPages
}

// Snapshot 视图层读取的全部状态
type Snapshot struct {
	Loading        bool          `json:"loading"`
	Error          string        `json:"error,omitempty"`
	SearchResults  []model.Movie `json:"search_results"`
	TrendingMovies []model.Movie `json:"trending_movies"`
	FavoriteMovies []model.Movie `json:"favorite_movies"`
	CurrentPage    int           `json:"current_page"`
	TotalPages     int           `json:"total_pages"`
	SearchQuery    string        `json:"search_query"`
	DarkMode       bool          `json:"dark_mode"`
	ActiveMode     Mode          `json:"active_mode"`
	Search         PageInfo      `json:"search"`
	Trending       PageInfo      `json:"trending"`
}

// MovieState 单个浏览器的电影状态容器，所有修改都经过这里的方法
type MovieState struct {
	catalog Catalog
	prefs   Preferences

	mu        sync.Mutex
	trending  pageState
	search    pageState
	favorites []model.Movie
	errMsg    string
	genres    []model.Genre

	// themeSet 为 false 时显示 ambientDark（每次请求由浏览器提示更新）
	themeSet    bool
	darkMode    bool
	ambientDark bool

	genreGroup singleflight.Group
}

// NewMovieState 从持久化偏好初始化容器；存储不可用时返回错误，避免用空收藏覆盖已保存的数据
func NewMovieState(ctx context.Context, catalog Catalog, prefs Preferences, ambientDark bool) (*MovieState, error) {
	favorites, err := prefs.LoadFavorites(ctx)
	if err != nil {
		return nil, err
	}
	s := &MovieState{
		catalog:     catalog,
		prefs:       prefs,
		favorites:   favorites,
		ambientDark: ambientDark,
	}

	q, ok, err := prefs.LoadLastQuery(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		s.search.query = q
	}

	dark, ok, err := prefs.LoadTheme(ctx)
	if err != nil {
		return nil, err
	}
	s.themeSet = ok
	s.darkMode = dark
	return s, nil
}

// SetAmbientDark 更新浏览器上报的系统主题，只在没有保存过主题时生效
func (s *MovieState) SetAmbientDark(dark bool) {
	s.mu.Lock()
	s.ambientDark = dark
	s.mu.Unlock()
}

// FetchTrending 拉取热门；page 为 1 时替换结果，大于 1 时追加
func (s *MovieState) FetchTrending(ctx context.Context, page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	seq := s.begin(&s.trending)
	s.mu.Unlock()

	s.runTrending(ctx, page, seq)
}

// SearchMovies 搜索；空白查询直接清空结果，不访问网络
func (s *MovieState) SearchMovies(ctx context.Context, query string, page int) {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	if query == "" {
		// 同时作废仍在途的搜索请求
		s.search.seq++
		s.search.loading = false
		s.search.results = []model.Movie{}
		s.search.totalPages = 0
		s.errMsg = ""
		s.mu.Unlock()
		return
	}
	if query != s.search.query {
		page = 1
	}
	s.search.query = query
	seq := s.begin(&s.search)
	s.mu.Unlock()

	if err := s.prefs.SaveLastQuery(ctx, query); err != nil {
		log.WithError(err).Warn("[MovieState] 保存搜索词失败")
	}
	s.runSearch(ctx, query, page, seq)
}

// LoadMore 加载指定上下文的下一页；正在加载或已到最后一页时什么都不做
func (s *MovieState) LoadMore(ctx context.Context, mode Mode) bool {
	s.mu.Lock()
	ps := s.context(mode)
	if ps == nil || ps.loading || ps.page >= ps.totalPages {
		s.mu.Unlock()
		return false
	}
	next := ps.page + 1
	query := ps.query
	seq := s.begin(ps)
	s.mu.Unlock()

	if mode == ModeSearch {
		s.runSearch(ctx, query, next, seq)
	} else {
		s.runTrending(ctx, next, seq)
	}
	return true
}

// ToggleFavorite 已收藏则移除，否则追加；返回切换后的收藏状态
func (s *MovieState) ToggleFavorite(ctx context.Context, movie model.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.favorites, movie.ID)
	next := make([]model.Movie, 0, len(s.favorites)+1)
	if idx >= 0 {
		next = append(next, s.favorites[:idx]...)
		next = append(next, s.favorites[idx+1:]...)
	} else {
		next = append(next, s.favorites...)
		next = append(next, movie)
	}
	s.favorites = next

	if err := s.prefs.SaveFavorites(ctx, next); err != nil {
		log.WithError(err).WithField("movie", movie.ID).Warn("[MovieState] 保存收藏失败")
	}
	return idx < 0
}

// IsFavorite 按 id 判断是否已收藏
func (s *MovieState) IsFavorite(movieID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.favorites, movieID) >= 0
}

// ToggleDarkMode 翻转当前显示的主题并保存，返回新值
func (s *MovieState) ToggleDarkMode(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.darkMode = !s.dark()
	s.themeSet = true
	if err := s.prefs.SaveTheme(ctx, s.darkMode); err != nil {
		log.WithError(err).Warn("[MovieState] 保存主题失败")
	}
	return s.darkMode
}

// Genres 类型列表，成功后在容器生命周期内只拉取一次
func (s *MovieState) Genres(ctx context.Context) []model.Genre {
	s.mu.Lock()
	if s.genres != nil {
		g := s.genres
		s.mu.Unlock()
		return g
	}
	s.mu.Unlock()

	v, err, _ := s.genreGroup.Do("genres", func() (interface{}, error) {
		return s.catalog.Genres(ctx)
	})
	if err != nil {
		log.WithError(err).Warn("[MovieState] 加载类型列表失败")
		return []model.Genre{}
	}

	genres := v.([]model.Genre)
	s.mu.Lock()
	s.genres = genres
	s.mu.Unlock()
	return genres
}

// MovieDetails 详情；失败时返回带固定提示语的 DisplayError
func (s *MovieState) MovieDetails(ctx context.Context, movieID int) (*model.MovieDetails, error) {
	details, err := s.catalog.Details(ctx, movieID)
	if err != nil {
		return nil, &DisplayError{Message: MsgDetailsFailed, Cause: err}
	}
	return details, nil
}

// Lookup 在收藏和已加载结果中按 id 查找完整记录
func (s *MovieState) Lookup(movieID int) (model.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]model.Movie{s.favorites, s.search.results, s.trending.results} {
		if i := indexOf(list, movieID); i >= 0 {
			return list[i], true
		}
	}
	return model.Movie{}, false
}

// ActiveMode 有搜索词时为搜索，否则为热门
func (s *MovieState) ActiveMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMode()
}

// Snapshot 复制当前状态
func (s *MovieState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := s.search.info()
	trending := s.trending.info()
	active := trending
	if s.activeMode() == ModeSearch {
		active = search
	}
	return Snapshot{
		Loading:        s.search.loading || s.trending.loading,
		Error:          s.errMsg,
		SearchResults:  search.Results,
		TrendingMovies: trending.Results,
		FavoriteMovies: append([]model.Movie{}, s.favorites...),
		CurrentPage:    active.Page,
		TotalPages:     active.TotalPages,
		SearchQuery:    s.search.query,
		DarkMode:       s.dark(),
		ActiveMode:     s.activeMode(),
		Search:         search,
		Trending:       trending,
	}
}

func (s *MovieState) dark() bool {
	if s.themeSet {
		return s.darkMode
	}
	return s.ambientDark
}

func (s *MovieState) activeMode() Mode {
	if s.search.query != "" {
		return ModeSearch
	}
	return ModeTrending
}

func (s *MovieState) context(mode Mode) *pageState {
	switch mode {
	case ModeSearch:
		return &s.search
	case ModeTrending:
		return &s.trending
	}
	return nil
}

// begin 调用方需持有锁
func (s *MovieState) begin(ps *pageState) uint64 {
	ps.seq++
	ps.loading = true
	s.errMsg = ""
	return ps.seq
}

func (s *MovieState) runTrending(ctx context.Context, page int, seq uint64) {
	res, err := s.catalog.Trending(ctx, page)
	s.apply(&s.trending, seq, page, res, err, MsgTrendingFailed)
}

func (s *MovieState) runSearch(ctx context.Context, query string, page int, seq uint64) {
	res, err := s.catalog.Search(ctx, query, page)
	s.apply(&s.search, seq, page, res, err, MsgSearchFailed)
}

func (s *MovieState) apply(ps *pageState, seq uint64, requested int, res *model.MoviePage, err error, failMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ps.seq != seq {
		log.WithField("page", requested).Debug("[MovieState] 丢弃过期响应")
		return
	}
	ps.loading = false
	if err != nil {
		s.errMsg = failMsg
		log.WithError(err).WithField("page", requested).Warn("[MovieState] 拉取失败")
		return
	}

	page := res.Page
	if page < 1 {
		page = requested
	}
	if page > 1 {
		ps.results = append(append([]model.Movie{}, ps.results...), res.Results...)
	} else {
		ps.results = append([]model.Movie{}, res.Results...)
	}
	ps.page = page
	ps.totalPages = res.TotalPages
}

func (p *pageState) info() PageInfo {
	results := make([]model.Movie, len(p.results))
	copy(results, p.results)
	return PageInfo{
		Query:      p.query,
		Results:    results,
		Page:       p.page,
		TotalPages: p.totalPages,
		Loading:    p.loading,
	}
}

func indexOf(movies []model.Movie, id int) int {
	for i, m := range movies {
		if m.ID == id {
			return i
		}
	}
	return -1
}
