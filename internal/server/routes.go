package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type plantRequest struct {
	SeedID   string    `json:"seed_id"`
	SeedData mesh.Seed `json:"seed_data"`
}

type seedRow struct {
	ID    string
	Title string
}

func (s *Server) RegisterRoutes() {
	routes := s.routes()

	routes.GET("/", s.handleHome)

	routes.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"node":    s.node.ID(),
			"version": Version,
		})
	})

	routes.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"node":    s.node.ID(),
			"seeds":   s.node.SeedCount(),
			"version": Version,
		})
	})

	routes.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.GET("/api/seeds", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.node.SeedIDs())
	})

	routes.GET("/api/seeds/:id", func(c *gin.Context) {
		seed, ok := s.node.Seed(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": mesh.ErrSeedNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, seed)
	})

	routes.POST("/api/plant", func(c *gin.Context) {
		var req plantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid body: %v", err)})
			return
		}
		id := strings.TrimSpace(req.SeedID)
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seed_id is required"})
			return
		}
		if req.SeedData == nil {
			req.SeedData = mesh.Seed{}
		}
		if err := s.Plant(id, req.SeedData); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": fmt.Sprintf("Seed %s planted successfully", id),
		})
	})

	if s.ContentDir != "" {
		routes.StaticFS("/content", gin.Dir(s.ContentDir, false))
	} else {
		routes.GET("/content/*filepath", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no content directory configured"})
		})
	}
}

func (s *Server) handleHome(c *gin.Context) {
	ids := s.node.SeedIDs()
	rows := make([]seedRow, 0, len(ids))
	for _, id := range ids {
		row := seedRow{ID: id}
		if seed, ok := s.node.Seed(id); ok {
			if title, ok := seed["title"].(string); ok {
				row.Title = title
			}
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	if err := s.home.Execute(&buf, struct {
		Node  string
		Seeds []seedRow
	}{Node: s.node.ID(), Seeds: rows}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

const homeTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>EduSeedbank Local Server</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1 { color: #2c3e50; }
        .seed { border: 1px solid #ddd; padding: 15px; margin: 10px 0; border-radius: 5px; background-color: #f9f9f9; }
    </style>
</head>
<body>
    <h1>EduSeedbank Local Server</h1>
    <p>Server lokal untuk konten edukatif offline. Node: {{.Node}}</p>
    <h2>Bibit yang Ditanam:</h2>
    <div id="seeds-list">
{{- range .Seeds}}
        <div class="seed"><a href="api/seeds/{{.ID}}">{{.ID}}</a>{{if .Title}} - {{.Title}}{{end}}</div>
{{- else}}
        <p>Belum ada bibit yang ditanam.</p>
{{- end}}
    </div>
</body>
</html>
`
