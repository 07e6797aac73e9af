// Package api exposes the downloader over a small JSON HTTP surface.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famomatic/clipget/client"
)

// Server wires the HTTP handlers to a shared Downloader.
type Server struct {
	dl     *client.Downloader
	logger client.Logger
}

// New builds a Server around an already-configured Downloader.
func New(dl *client.Downloader, logger client.Logger) *Server {
	return &Server{dl: dl, logger: logger}
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/api/info", s.handleInfo)
	r.POST("/api/download", s.handleDownload)
	r.POST("/api/segments", s.handleSegments)

	return r
}

type downloadRequest struct {
	URL string `json:"url" binding:"required"`
}

type segmentRequest struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	OutputPath string `json:"output_path,omitempty"`
}

type segmentsRequest struct {
	URL      string           `json:"url" binding:"required"`
	Segments []segmentRequest `json:"segments" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInfo(c *gin.Context) {
	address := c.Query("url")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}
	info, err := s.dl.GetVideo(c.Request.Context(), address)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	path, err := s.dl.Download(c.Request.Context(), req.URL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleSegments(c *gin.Context) {
	var req segmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	segs := make([]client.Segment, len(req.Segments))
	for i, seg := range req.Segments {
		segs[i] = client.Segment{Start: seg.Start, End: seg.End, OutputPath: seg.OutputPath}
	}
	paths, err := s.dl.DownloadSegments(c.Request.Context(), req.URL, segs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

// writeError maps the package error taxonomy onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var vErr *client.ValidationError
	var extErr *client.ExtractionError
	switch {
	case errors.Is(err, client.ErrInvalidInput) || errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &extErr):
		s.logger.Warnf("extraction failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Warnf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
