package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/user/moviedex/internal/model"
)

var validate = validator.New()

// Filter 列表筛选条件，字段为空表示不筛选；多个条件取交集
type Filter struct {
	GenreID   *int     `json:"genre_id,omitempty" validate:"omitempty,gt=0"`
	Year      string   `json:"year,omitempty" validate:"omitempty,len=4,numeric"`
	MinRating *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// ParseFilter 从查询参数构造筛选条件
func ParseFilter(genre, year, rating string) (Filter, error) {
	var f Filter
	if genre = strings.TrimSpace(genre); genre != "" {
		id, err := strconv.Atoi(genre)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid genre %q", genre)
		}
		f.GenreID = &id
	}
	f.Year = strings.TrimSpace(year)
	if rating = strings.TrimSpace(rating); rating != "" {
		r, err := strconv.ParseFloat(rating, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid rating %q", rating)
		}
		f.MinRating = &r
	}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate 校验筛选条件
func (f Filter) Validate() error {
	return validate.Struct(f)
}

// IsZero 没有任何筛选条件
func (f Filter) IsZero() bool {
	return f.GenreID == nil && f.Year == "" && f.MinRating == nil
}

// Match 单部电影是否满足全部条件；缺少对应字段视为不满足
func (f Filter) Match(m model.Movie) bool {
	if f.GenreID != nil && !m.HasGenre(*f.GenreID) {
		return false
	}
	if f.Year != "" && m.Year() != f.Year {
		return false
	}
	if f.MinRating != nil && (m.VoteAverage == nil || *m.VoteAverage < *f.MinRating) {
		return false
	}
	return true
}

// FilterMovies 返回满足条件的子序列，不修改入参
func FilterMovies(movies []model.Movie, f Filter) []model.Movie {
	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// YearOptions 年份下拉框：从今年起往前 50 年
func YearOptions(now time.Time) []string {
	years := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		years = append(years, strconv.Itoa(now.Year()-i))
	}
	return years
}
