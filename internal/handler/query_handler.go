// Package handler 存放 HTTP 请求的处理函数。
package handler

import (
	"net/http"
	"strings"

	"doc-rag-go/internal/service"
	"doc-rag-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QueryHandler 结构体定义了问答相关的处理器。
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// Query 是处理 GET /query 请求的 Gin 处理函数。
// q 参数缺失或为空时直接返回 400，不触发检索与生成。
func (h *QueryHandler) Query(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		log.Warnf("[QueryHandler] 请求被拒绝: q 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "q 参数不能为空"})
		return
	}
	log.Infof("[QueryHandler] 收到查询请求, q: '%s'", q)

	dto, err := h.queryService.Answer(c.Request.Context(), q)
	if err != nil {
		log.Errorf("[QueryHandler] 处理查询失败, q: '%s', error: %v", q, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成回答失败"})
		return
	}

	c.JSON(http.StatusOK, dto)
}
