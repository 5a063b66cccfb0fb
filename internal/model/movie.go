package model

import "fmt"

// Movie 电影模型（目录返回的基础记录，收藏夹保存的也是完整记录）
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview,omitempty"`
	PosterPath  *string  `json:"poster_path,omitempty"`
	ReleaseDate *string  `json:"release_date,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	GenreIDs    []int    `json:"genre_ids,omitempty"`
}

// Genre 类型
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember 演员
type CastMember struct {
	Name             string `json:"name"`
	Character        string `json:"character"`
	ProfileImagePath string `json:"profile_path,omitempty"`
}

// MovieDetails 详情页数据
type MovieDetails struct {
	Movie
	Tagline    string       `json:"tagline,omitempty"`
	VoteCount  int          `json:"vote_count"`
	Runtime    int          `json:"runtime,omitempty"`
	Genres     []Genre      `json:"genres"`
	Cast       []CastMember `json:"cast"`
	TrailerKey *string      `json:"trailer_key,omitempty"`
}

// MoviePage 分页结果（搜索与热门共用）
type MoviePage struct {
	Results    []Movie `json:"results"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

// Poster 海报路径，缺失时返回空串
func (m Movie) Poster() string {
	if m.PosterPath == nil {
		return ""
	}
	return *m.PosterPath
}

// Released 上映日期，缺失时返回空串
func (m Movie) Released() string {
	if m.ReleaseDate == nil {
		return ""
	}
	return *m.ReleaseDate
}

// Year 上映年份（4 位字符串），缺失时返回空串
func (m Movie) Year() string {
	date := m.Released()
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// DisplayYear 卡片上显示的年份
func (m Movie) DisplayYear() string {
	if y := m.Year(); y != "" {
		return y
	}
	return "N/A"
}

// DisplayRating 保留一位小数的评分
func (m Movie) DisplayRating() string {
	if m.VoteAverage == nil || *m.VoteAverage == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *m.VoteAverage)
}

// RatingTier 评分档位，对应卡片上的颜色
func (m Movie) RatingTier() string {
	var r float64
	if m.VoteAverage != nil {
		r = *m.VoteAverage
	}
	switch {
	case r >= 8:
		return "high"
	case r >= 6:
		return "good"
	case r >= 4:
		return "fair"
	default:
		return "poor"
	}
}

// HasGenre 是否属于某个类型
func (m Movie) HasGenre(id int) bool {
	for _, g := range m.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Trailer 预告片 key，没有时返回空串
func (d MovieDetails) Trailer() string {
	if d.TrailerKey == nil {
		return ""
	}
	return *d.TrailerKey
}

// TopCast 详情页展示的前 n 位演员
func (d MovieDetails) TopCast(n int) []CastMember {
	if len(d.Cast) <= n {
		return d.Cast
	}
	return d.Cast[:n]
}
