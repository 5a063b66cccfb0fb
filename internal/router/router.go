package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/user/moviedex/internal/handler"
	"github.com/user/moviedex/internal/middleware"
	"github.com/user/moviedex/internal/model"
)

// PlaceholderPoster 没有海报时使用的图片
const PlaceholderPoster = "/static/placeholder-poster.svg"

// URLBuilder 模板中使用的图片/视频地址构造
type URLBuilder interface {
	ImageURL(path, size string) string
	VideoEmbedURL(key string) string
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	site := r.Group("/")
	site.Use(middleware.BrowserID(), middleware.OptionalAuth(h.Config.AppSecret))

	// ==================== 页面 ====================
	site.GET("/", h.Home)
	site.GET("/search", h.Search)
	site.POST("/more", h.LoadMore)
	site.GET("/movie/:id", h.Movie)
	site.GET("/favorites", h.Favorites)
	site.POST("/favorites/:id", h.ToggleFavorite)
	site.POST("/theme", h.ToggleTheme)

	// ==================== 模拟登录 ====================
	auth := site.Group("/auth")
	{
		auth.GET("/login", h.LoginPage)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
	}

	// ==================== JSON API ====================
	api := site.Group("/api")
	{
		api.GET("/state", h.APIState)
		api.GET("/trending", h.APITrending)
		api.GET("/search", h.APISearch)
		api.POST("/more", h.APILoadMore)
		api.GET("/movies", h.APIFilteredMovies)
		api.GET("/movies/:id", h.APIMovieDetails)
		api.GET("/genres", h.APIGenres)
		api.GET("/favorites", h.APIFavorites)
		api.POST("/favorites", h.APIToggleFavorite)
		api.GET("/favorites/:id", h.APIIsFavorite)
		api.POST("/theme", h.APIToggleTheme)
	}

	r.NoRoute(middleware.BrowserID(), middleware.OptionalAuth(h.Config.AppSecret), h.NotFound)
}

// LoadTemplates 使用 multitemplate 加载模板，每个页面都由布局 + 局部模板 + 页面组成
func LoadTemplates(fsys fs.FS, urls URLBuilder) multitemplate.Render {
	r := multitemplate.New()

	layouts, err := fs.Glob(fsys, "templates/layouts/*.html")
	if err != nil {
		panic(err)
	}
	partials, err := fs.Glob(fsys, "templates/partials/*.html")
	if err != nil {
		panic(err)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 模板函数
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"image": urls.ImageURL,
		"video": urls.VideoEmbedURL,
		"poster": func(m model.Movie) string {
			if u := urls.ImageURL(m.Poster(), "w500"); u != "" {
				return u
			}
			return PlaceholderPoster
		},
	}

	// 注册所有页面模板
	pages := []string{"home", "movie", "favorites", "login", "404", "error"}
	for _, page := range pages {
		files := assemble("templates/pages/" + page + ".html")
		tmpl := template.Must(template.New("base.html").Funcs(funcMap).ParseFS(fsys, files...))
		r.Add(page+".html", tmpl)
	}

	return r
}

// NewEngine 组装 gin 引擎：中间件、会话、模板、静态资源与路由
func NewEngine(h *handler.Handler, assets fs.FS, urls URLBuilder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 浏览器 id 存在长期 Cookie 会话中，相当于浏览器本地存储的作用域
	store := cookie.NewStore([]byte(h.Config.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 365,
		HttpOnly: true,
		Secure:   h.Config.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("moviedex", store))

	r.Use(middleware.Security())
	r.Use(middleware.CORS(h.Config.CORSOrigins))

	r.HTMLRender = LoadTemplates(assets, urls)
	r.StaticFS("/static", staticFS(assets))

	RegisterRoutes(r, h)
	return r
}

func staticFS(fsys fs.FS) http.FileSystem {
	sub, err := fs.Sub(fsys, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
