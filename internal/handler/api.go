package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/moviedex/internal/model"
	"github.com/user/moviedex/internal/service"
	"github.com/user/moviedex/internal/utils"
)

// parsePage 解析 page 参数，缺省为 1
func parsePage(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errors.New("page must be a positive integer")
	}
	return page, nil
}

// parseID 解析路径中的电影 id
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// respondPage 操作失败时保留旧结果并返回 502
func respondPage(c *gin.Context, snap service.Snapshot, page service.PageInfo) {
	if snap.Error != "" {
		utils.BadGateway(c, snap.Error, page)
		return
	}
	utils.Success(c, page)
}

// APIState 当前浏览器的完整状态
func (h *Handler) APIState(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	utils.Success(c, st.Snapshot())
}

// APITrending 拉取热门
func (h *Handler) APITrending(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	st.FetchTrending(c.Request.Context(), page)
	snap := st.Snapshot()
	respondPage(c, snap, snap.Trending)
}

// APISearch 搜索
func (h *Handler) APISearch(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	st.SearchMovies(c.Request.Context(), c.Query("q"), page)
	snap := st.Snapshot()
	respondPage(c, snap, snap.Search)
}

// APILoadMore 加载下一页，没有更多时 loaded 为 false
func (h *Handler) APILoadMore(c *gin.Context) {
	mode, ok := service.ParseMode(c.DefaultQuery("mode", c.PostForm("mode")))
	if !ok {
		utils.BadRequest(c, "mode must be trending or search")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	loaded := st.LoadMore(c.Request.Context(), mode)
	snap := st.Snapshot()
	page := snap.Trending
	if mode == service.ModeSearch {
		page = snap.Search
	}
	data := gin.H{"loaded": loaded, "page": page}
	if loaded && snap.Error != "" {
		utils.BadGateway(c, snap.Error, data)
		return
	}
	utils.Success(c, data)
}

// APIFilteredMovies 按类型、年份、评分过滤当前上下文的结果
func (h *Handler) APIFilteredMovies(c *gin.Context) {
	filter, err := service.ParseFilter(c.Query("genre"), c.Query("year"), c.Query("rating"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	mode, ok := service.ParseMode(c.Query("mode"))
	if !ok {
		mode = st.ActiveMode()
	}
	snap := st.Snapshot()
	source := snap.TrendingMovies
	if mode == service.ModeSearch {
		source = snap.SearchResults
	}
	utils.Success(c, gin.H{
		"mode":    mode,
		"results": service.FilterMovies(source, filter),
	})
}

// APIMovieDetails 电影详情
func (h *Handler) APIMovieDetails(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		utils.BadRequest(c, "invalid movie id")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	details, err := st.MovieDetails(c.Request.Context(), id)
	if err != nil {
		utils.BadGateway(c, err.Error(), nil)
		return
	}
	utils.Success(c, details)
}

// APIGenres 类型列表
func (h *Handler) APIGenres(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	utils.Success(c, st.Genres(c.Request.Context()))
}

// APIFavorites 收藏列表
func (h *Handler) APIFavorites(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	utils.Success(c, st.Snapshot().FavoriteMovies)
}

// APIToggleFavorite 以完整电影记录切换收藏
func (h *Handler) APIToggleFavorite(c *gin.Context) {
	var movie model.Movie
	if err := c.ShouldBindJSON(&movie); err != nil {
		utils.BadRequest(c, "invalid movie: "+err.Error())
		return
	}
	if movie.ID <= 0 {
		utils.BadRequest(c, "movie id is required")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	favorite := st.ToggleFavorite(c.Request.Context(), movie)
	utils.Success(c, gin.H{
		"id":        movie.ID,
		"favorite":  favorite,
		"favorites": st.Snapshot().FavoriteMovies,
	})
}

// APIIsFavorite 查询单部电影是否已收藏
func (h *Handler) APIIsFavorite(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		utils.BadRequest(c, "invalid movie id")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	utils.Success(c, gin.H{"id": id, "favorite": st.IsFavorite(id)})
}

// APIToggleTheme 切换深色模式
func (h *Handler) APIToggleTheme(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	dark := st.ToggleDarkMode(c.Request.Context())
	utils.Success(c, gin.H{"dark_mode": dark})
}
