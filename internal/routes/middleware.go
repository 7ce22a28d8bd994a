package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"task-manager/backend/internal/services"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダーです。
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware はリクエストIDをレスポンスヘッダーとリクエストのコンテキストに設定するミドルウェアです。
// クライアントが UUID を送った場合だけそれを使い、それ以外は新しく生成します。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := newRequestID(c.GetHeader(RequestIDHeader))
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// newRequestID はログに出しても安全な正規化済みのIDを返します。
func newRequestID(header string) string {
	if parsed, err := uuid.Parse(header); err == nil {
		return parsed.String()
	}
	return uuid.NewString()
}
