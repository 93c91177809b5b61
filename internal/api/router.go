// Package api exposes the page cloner over HTTP.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/FranksOps/orchid/internal/metrics"
	"github.com/FranksOps/orchid/internal/scrape"
	"github.com/FranksOps/orchid/internal/simplify"
)

// Deps are the collaborators the cloner routes need.
type Deps struct {
	Scraper   scrape.Scraper
	Generator PageGenerator
	// Simplify defaults to simplify.HTML.
	Simplify SimplifyFunc
	Logger   *slog.Logger
}

// NewRouter wires the cloner routes:
//
//	GET  /         welcome message
//	POST /clone    scrape, simplify and regenerate a page
//	GET  /metrics  Prometheus exposition
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Simplify == nil {
		d.Simplify = simplify.HTML
	}

	r := gin.New()
	r.Use(RequestID(), Recovery(d.Logger), RequestLogger(d.Logger), CORS())

	r.GET("/", rootHandler)
	r.POST("/clone", cloneHandler(d.Scraper, d.Simplify, d.Generator, d.Logger))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
