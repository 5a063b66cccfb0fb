package middleware

import (
	"github.com/apex/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	browserKey     = "browser_id"
	colorSchemeHdr = "Sec-CH-Prefers-Color-Scheme"
)

// BrowserID 为每个浏览器分配稳定的 id，存放在 Cookie 会话里
func BrowserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := session.Get(browserKey).(string)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			session.Set(browserKey, id)
			if err := session.Save(); err != nil {
				log.WithError(err).Warn("[Session] 保存浏览器 id 失败")
			}
		}
		c.Set(browserKey, id)

		// 请求主题客户端提示，没有保存过主题时按它显示
		c.Header("Accept-CH", colorSchemeHdr)
		c.Header("Vary", colorSchemeHdr)
		c.Next()
	}
}

// GetBrowserID 从上下文获取浏览器 id
func GetBrowserID(c *gin.Context) string {
	return c.GetString(browserKey)
}

// PrefersDark 浏览器是否声明了深色偏好
func PrefersDark(c *gin.Context) bool {
	return c.GetHeader(colorSchemeHdr) == "dark"
}
