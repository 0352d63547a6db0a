// Package router builds the gin route table for the server.
package router

import (
	"github.com/gin-gonic/gin"

	runhandler "stock_retriever/internal/feature/download/transport/handler"
	jwtmw "stock_retriever/internal/platform/jwt"
)

func NewRouter(runs *runhandler.RunHandler, health gin.HandlerFunc, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 認証不要
	// 導通確認用
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)
	// 実行履歴の参照
	r.GET("/runs", runs.ListRuns)
	r.GET("/runs/:id", runs.GetRun)

	// 認証必須のルート
	// バッチの起動にはスコープ付きのJWTが必要
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret, jwtmw.ScopeTriggerRuns))
	{
		auth.POST("/runs", runs.TriggerRun)
	}

	return r
}
