package model

import "time"

// Preference 按浏览器保存的键值偏好（收藏、上次搜索、主题）
type Preference struct {
	BrowserID string    `json:"browser_id" gorm:"primaryKey;size:64"`
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}
