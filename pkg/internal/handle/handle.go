// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

func checkUser(c *gin.Context) (string, error) {
	// 提取用户名：Header 优先 -> query 参数 -> 默认 test-user（便于测试）
	user := c.GetHeader("X-User")
	if user == "" {
		user = c.Query("user")
	}
	// 测试默认值，不为 Debug 或者 Test 模式时
	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = "test-user@example.com"
	}

	user = strings.TrimSpace(user)

	// 使用 validator 验证用户名格式为 email
	if err := rule.ValidateVar(user, "required,email"); err != nil {
		return "", err
	}

	return user, nil
}

// replyError 把业务错误翻译成 HTTP 状态码：
// 严格创建冲突 409，查无此档 404，作用域/参数问题 400，其余 500.
func replyError(c *gin.Context, l *zerolog.Logger, err error, msg string) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, repository.ErrEntryAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrOutputFileNotFound),
		errors.Is(err, repository.ErrChildrenFileNotFound),
		errors.Is(err, repository.ErrWorkingFileNotFound),
		errors.Is(err, repository.ErrOutputTypeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrAmbiguousScope):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		l.Error().Err(err).Msg(msg)
	} else {
		l.Warn().Err(err).Msg(msg)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
