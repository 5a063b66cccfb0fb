package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/user/moviedex/internal/config"
	"github.com/user/moviedex/internal/middleware"
	"github.com/user/moviedex/internal/service"
	"github.com/user/moviedex/internal/utils"
)

const (
	loginExpiry  = 24 * time.Hour
	msgLoginFail = "Please enter both username and password"
	msgStateFail = "Could not load your saved preferences. Please try again."
)

// ratingOptions 最低评分下拉框
var ratingOptions = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// Handler HTTP 处理器
type Handler struct {
	Config *config.Config
	States *service.StateRegistry
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, states *service.StateRegistry) *Handler {
	return &Handler{
		Config: cfg,
		States: states,
	}
}

// state 当前浏览器的状态容器；偏好读取失败时已写出 500 响应，调用方直接返回
func (h *Handler) state(c *gin.Context) (*service.MovieState, bool) {
	st, err := h.States.Get(c.Request.Context(), middleware.GetBrowserID(c), middleware.PrefersDark(c))
	if err == nil {
		return st, true
	}

	log.WithError(err).Error("[Handler] 加载浏览器状态失败")
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		utils.InternalServerError(c, msgStateFail)
	} else {
		snap := service.Snapshot{DarkMode: middleware.PrefersDark(c)}
		c.HTML(http.StatusInternalServerError, "error.html", h.RenderData(c, snap, gin.H{
			"Title": "Error - " + h.Config.SiteName,
			"Error": msgStateFail,
		}))
	}
	c.Abort()
	return nil, false
}

// homeURL 当前首页地址，保留筛选条件，去掉一次性的 refresh
func homeURL(c *gin.Context, tab service.Mode) string {
	q := c.Request.URL.Query()
	q.Del("refresh")
	q.Set("tab", string(tab))
	return "/?" + q.Encode()
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, snap service.Snapshot, data gin.H) gin.H {
	favoriteIDs := make(map[int]bool, len(snap.FavoriteMovies))
	for _, m := range snap.FavoriteMovies {
		favoriteIDs[m.ID] = true
	}

	res := gin.H{
		"SiteName":      h.Config.SiteName,
		"Title":         h.Config.SiteName,
		"Path":          c.Request.URL.RequestURI(),
		"ActiveMenu":    h.getActiveMenu(c.Request.URL.Path),
		"Username":      middleware.GetUsername(c),
		"DarkMode":      snap.DarkMode,
		"SearchQuery":   snap.SearchQuery,
		"FavoriteCount": len(snap.FavoriteMovies),
		"FavoriteIDs":   favoriteIDs,
	}

	// 合并传入的数据
	for k, v := range data {
		res[k] = v
	}
	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch {
	case path == "/":
		return "home"
	case strings.HasPrefix(path, "/favorites"):
		return "favorites"
	default:
		return ""
	}
}

// Home 首页：热门 / 搜索结果两个标签页，支持类型、年份、评分筛选
func (h *Handler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	st, ok := h.state(c)
	if !ok {
		return
	}

	tab, ok := service.ParseMode(c.Query("tab"))
	if !ok {
		tab = st.ActiveMode()
	}

	filterErr := ""
	filter, err := service.ParseFilter(c.Query("genre"), c.Query("year"), c.Query("rating"))
	if err != nil {
		filterErr = "Invalid filter: " + err.Error()
		filter = service.Filter{}
	}

	// 首次进入或显式刷新时拉取第一页热门
	snap := st.Snapshot()
	if tab == service.ModeTrending && !snap.Trending.Loading &&
		(snap.Trending.Page == 0 || c.Query("refresh") == "1") {
		st.FetchTrending(ctx, 1)
		snap = st.Snapshot()
	}

	page := snap.Trending
	if tab == service.ModeSearch {
		page = snap.Search
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, snap, gin.H{
		"Title":          h.Config.SiteName + " - Discover movies",
		"Tab":            string(tab),
		"Page":           page,
		"Movies":         service.FilterMovies(page.Results, filter),
		"Genres":         st.Genres(ctx),
		"Years":          service.YearOptions(time.Now()),
		"Ratings":        ratingOptions,
		"SelectedGenre":  c.Query("genre"),
		"SelectedYear":   c.Query("year"),
		"SelectedRating": c.Query("rating"),
		"Error":          snap.Error,
		"FilterError":    filterErr,
		"Redirect":       homeURL(c, tab),
	}))
}

// Search 搜索后跳转到搜索标签页
func (h *Handler) Search(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	st.SearchMovies(c.Request.Context(), c.Query("q"), 1)
	c.Redirect(http.StatusFound, "/?tab="+string(service.ModeSearch))
}

// LoadMore 加载下一页，跳回时带上原来的筛选条件
func (h *Handler) LoadMore(c *gin.Context) {
	mode, ok := service.ParseMode(c.PostForm("mode"))
	if !ok {
		c.String(http.StatusBadRequest, "unknown mode")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	st.LoadMore(c.Request.Context(), mode)
	c.Redirect(http.StatusFound, safeRedirect(c.PostForm("redirect"), "/?tab="+string(mode)))
}

// Movie 电影详情页
func (h *Handler) Movie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}

	st, ok := h.state(c)
	if !ok {
		return
	}
	details, err := st.MovieDetails(c.Request.Context(), id)
	snap := st.Snapshot()
	if err != nil {
		log.WithError(err).WithField("movie", id).Warn("[Handler] 加载详情失败")
		c.HTML(http.StatusBadGateway, "movie.html", h.RenderData(c, snap, gin.H{
			"Title": "Movie details - " + h.Config.SiteName,
			"Error": err.Error(),
		}))
		return
	}

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, snap, gin.H{
		"Title":      details.Title + " - " + h.Config.SiteName,
		"Movie":      details,
		"IsFavorite": st.IsFavorite(id),
	}))
}

// Favorites 收藏夹
func (h *Handler) Favorites(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	snap := st.Snapshot()
	c.HTML(http.StatusOK, "favorites.html", h.RenderData(c, snap, gin.H{
		"Title":     "My favorites - " + h.Config.SiteName,
		"Favorites": snap.FavoriteMovies,
	}))
}

// ToggleFavorite 按 id 收藏/取消收藏；记录优先取已加载的数据，否则拉取详情
func (h *Handler) ToggleFavorite(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}

	ctx := c.Request.Context()
	st, ok := h.state(c)
	if !ok {
		return
	}
	movie, ok := st.Lookup(id)
	if !ok {
		details, err := st.MovieDetails(ctx, id)
		if err != nil {
			c.HTML(http.StatusBadGateway, "movie.html", h.RenderData(c, st.Snapshot(), gin.H{
				"Error": err.Error(),
			}))
			return
		}
		movie = details.Movie
	}
	st.ToggleFavorite(ctx, movie)
	c.Redirect(http.StatusFound, safeRedirect(c.PostForm("redirect"), "/favorites"))
}

// ToggleTheme 切换深色模式
func (h *Handler) ToggleTheme(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	st.ToggleDarkMode(c.Request.Context())
	c.Redirect(http.StatusFound, safeRedirect(c.PostForm("redirect"), "/"))
}

// LoginPage 登录页面
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.GetUsername(c) != "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "login.html", h.RenderData(c, st.Snapshot(), gin.H{
		"Title":    "Login - " + h.Config.SiteName,
		"Redirect": c.Query("redirect"),
	}))
}

// Login 模拟登录：用户名和密码非空即可，不做任何校验，也不持久化
func (h *Handler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := strings.TrimSpace(c.PostForm("password"))
	redirect := safeRedirect(c.PostForm("redirect"), "/")
	st, ok := h.state(c)
	if !ok {
		return
	}

	if username == "" || password == "" {
		c.HTML(http.StatusOK, "login.html", h.RenderData(c, st.Snapshot(), gin.H{
			"Title":     "Login - " + h.Config.SiteName,
			"Error":     msgLoginFail,
			"LoginName": username,
			"Redirect":  redirect,
		}))
		return
	}

	token, err := middleware.GenerateToken(username, h.Config.AppSecret, loginExpiry)
	if err != nil {
		log.WithError(err).Error("[Handler] 生成登录令牌失败")
		c.HTML(http.StatusInternalServerError, "login.html", h.RenderData(c, st.Snapshot(), gin.H{
			"Title": "Login - " + h.Config.SiteName,
			"Error": "Login failed, please try again",
		}))
		return
	}
	middleware.SetTokenCookie(c, token)
	c.Redirect(http.StatusFound, redirect)
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.Redirect(http.StatusFound, "/")
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		utils.NotFound(c, "not found")
		return
	}
	st, ok := h.state(c)
	if !ok {
		return
	}
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, st.Snapshot(), gin.H{
		"Title": "Not found - " + h.Config.SiteName,
	}))
}

// safeRedirect 只允许站内相对路径
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
