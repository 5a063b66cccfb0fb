package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/user/moviedex/internal/config"
	"github.com/user/moviedex/internal/model"
	"github.com/user/moviedex/internal/utils"
)

const (
	trendingWindow   = "day"
	defaultImageSize = "w500"
	trailerType      = "Trailer"
	trailerSite      = "YouTube"
	redactedKey      = "REDACTED"
)

// RemoteError 目录接口调用失败（网络、HTTP 状态或响应结构不符）
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("tmdb %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// TMDBService 目录客户端：搜索、热门、详情、类型列表
type TMDBService struct {
	client    *utils.HTTPClient
	baseURL   string
	apiKey    string
	imageBase string
	videoBase string
}

func NewTMDBService(cfg *config.Config) *TMDBService {
	client := utils.NewHTTPClient(cfg.HTTPTimeout)
	if cfg.TMDBToken != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.TMDBToken)
	}
	client.SetRateLimit(float64(cfg.TMDBRateLimit), cfg.TMDBRateLimit)
	return &TMDBService{
		client:    client,
		baseURL:   strings.TrimRight(cfg.TMDBBaseURL, "/"),
		apiKey:    cfg.TMDBAPIKey,
		imageBase: strings.TrimRight(cfg.ImageBaseURL, "/"),
		videoBase: strings.TrimRight(cfg.VideoEmbedBaseURL, "/"),
	}
}

type tmdbMovie struct {
	ID          *int     `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	PosterPath  *string  `json:"poster_path"`
	ReleaseDate *string  `json:"release_date"`
	VoteAverage *float64 `json:"vote_average"`
	GenreIDs    []int    `json:"genre_ids"`
}

type tmdbPageResponse struct {
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Results    []tmdbMovie `json:"results"`
}

type tmdbDetailsResponse struct {
	tmdbMovie
	Tagline   string        `json:"tagline"`
	VoteCount int           `json:"vote_count"`
	Runtime   int           `json:"runtime"`
	Genres    []model.Genre `json:"genres"`
	Videos    struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
	Credits struct {
		Cast []struct {
			Name        string  `json:"name"`
			Character   string  `json:"character"`
			ProfilePath *string `json:"profile_path"`
		} `json:"cast"`
	} `json:"credits"`
}

type tmdbGenreResponse struct {
	Genres []model.Genre `json:"genres"`
}

// Search 按关键词搜索
func (s *TMDBService) Search(ctx context.Context, query string, page int) (*model.MoviePage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	return s.fetchPage(ctx, "search", "/search/movie", params)
}

// Trending 当日热门
func (s *TMDBService) Trending(ctx context.Context, page int) (*model.MoviePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return s.fetchPage(ctx, "trending", "/trending/movie/"+trendingWindow, params)
}

// Details 电影详情（含视频与演职员）
func (s *TMDBService) Details(ctx context.Context, movieID int) (*model.MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "videos,credits")

	var raw tmdbDetailsResponse
	if err := s.getJSON(ctx, "details", fmt.Sprintf("/movie/%d", movieID), params, &raw); err != nil {
		return nil, err
	}
	movie, err := raw.tmdbMovie.toModel()
	if err != nil {
		return nil, &RemoteError{Op: "details", Err: err}
	}

	details := &model.MovieDetails{
		Movie:     movie,
		Tagline:   raw.Tagline,
		VoteCount: raw.VoteCount,
		Runtime:   raw.Runtime,
		Genres:    raw.Genres,
		Cast:      make([]model.CastMember, 0, len(raw.Credits.Cast)),
	}
	if details.Genres == nil {
		details.Genres = []model.Genre{}
	}
	for _, c := range raw.Credits.Cast {
		member := model.CastMember{Name: c.Name, Character: c.Character}
		if c.ProfilePath != nil {
			member.ProfileImagePath = *c.ProfilePath
		}
		details.Cast = append(details.Cast, member)
	}
	for _, v := range raw.Videos.Results {
		if v.Type == trailerType && v.Site == trailerSite {
			key := v.Key
			details.TrailerKey = &key
			break
		}
	}
	return details, nil
}

// Genres 类型列表
func (s *TMDBService) Genres(ctx context.Context) ([]model.Genre, error) {
	var raw tmdbGenreResponse
	if err := s.getJSON(ctx, "genres", "/genre/movie/list", url.Values{}, &raw); err != nil {
		return nil, err
	}
	if raw.Genres == nil {
		return []model.Genre{}, nil
	}
	return raw.Genres, nil
}

// ImageURL 图片地址，path 为空时返回空串
func (s *TMDBService) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = defaultImageSize
	}
	return s.imageBase + "/" + size + "/" + strings.TrimLeft(path, "/")
}

// VideoEmbedURL 预告片嵌入地址，key 为空时返回空串
func (s *TMDBService) VideoEmbedURL(key string) string {
	if key == "" {
		return ""
	}
	return s.videoBase + "/" + key
}

func (s *TMDBService) fetchPage(ctx context.Context, op, path string, params url.Values) (*model.MoviePage, error) {
	var raw tmdbPageResponse
	if err := s.getJSON(ctx, op, path, params, &raw); err != nil {
		return nil, err
	}

	page := &model.MoviePage{
		Page:       raw.Page,
		TotalPages: raw.TotalPages,
		Results:    make([]model.Movie, 0, len(raw.Results)),
	}
	for _, r := range raw.Results {
		m, err := r.toModel()
		if err != nil {
			return nil, &RemoteError{Op: op, Err: err}
		}
		page.Results = append(page.Results, m)
	}
	return page, nil
}

func (s *TMDBService) getJSON(ctx context.Context, op, path string, params url.Values, target interface{}) error {
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	u := s.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if err := s.client.GetJSON(ctx, u, target); err != nil {
		err = s.redactKey(err)
		log.WithError(err).WithField("op", op).Warn("[TMDB] 请求失败")
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

// redactKey 传输错误和状态错误里带着完整 URL，去掉其中的 api_key
func (s *TMDBService) redactKey(err error) error {
	if s.apiKey == "" {
		return err
	}
	replacer := strings.NewReplacer(url.QueryEscape(s.apiKey), redactedKey, s.apiKey, redactedKey)
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = replacer.Replace(urlErr.URL)
	}
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		statusErr.URL = replacer.Replace(statusErr.URL)
	}
	return err
}

func (r tmdbMovie) toModel() (model.Movie, error) {
	if r.ID == nil {
		return model.Movie{}, fmt.Errorf("movie record without id")
	}
	return model.Movie{
		ID:          *r.ID,
		Title:       r.Title,
		Overview:    r.Overview,
		PosterPath:  nonEmpty(r.PosterPath),
		ReleaseDate: nonEmpty(r.ReleaseDate),
		VoteAverage: r.VoteAverage,
		GenreIDs:    r.GenreIDs,
	}, nil
}

// nonEmpty 把空字符串也视为缺失
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
