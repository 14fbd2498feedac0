package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"doc-rag-go/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryService struct {
	dto       *model.QueryResponseDTO
	err       error
	callCount int
	lastQ     string
}

func (f *fakeQueryService) Answer(_ context.Context, question string) (*model.QueryResponseDTO, error) {
	f.callCount++
	f.lastQ = question
	if f.err != nil {
		return nil, f.err
	}
	return f.dto, nil
}

func newTestRouter(svc *fakeQueryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/query", NewQueryHandler(svc).Query)
	return r
}

func TestQueryReturnsQuestionAndResponse(t *testing.T) {
	svc := &fakeQueryService{dto: &model.QueryResponseDTO{Question: "hello", Response: "生成的回答"}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/query?q=hello", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "hello", body["question"])
	assert.NotEmpty(t, body["response"])
	assert.Equal(t, "hello", svc.lastQ)
}

func TestQueryRejectsEmptyParameter(t *testing.T) {
	for _, target := range []string{"/query", "/query?q=", "/query?q=%20%20"} {
		t.Run(target, func(t *testing.T) {
			svc := &fakeQueryService{dto: &model.QueryResponseDTO{}}
			r := newTestRouter(svc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, target, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			// 参数校验失败时不触发检索与生成
			assert.Zero(t, svc.callCount)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestQueryReturnsStructuredErrorOnServiceFailure(t *testing.T) {
	svc := &fakeQueryService{err: errors.New("llm backend unreachable")}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/query?q=hello", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, body["response"])
}
