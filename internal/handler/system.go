package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/accounts/internal/health"
)

// healthChecker is satisfied by *health.HealthChecker.
type healthChecker interface {
	CheckAll(ctx context.Context) health.Report
}

// ServiceInfo describes the running service for the root endpoint.
type ServiceInfo struct {
	Name    string
	Version string
	// Docs is the path of the route listing; empty disables it.
	Docs string
}

// SystemHandler serves the root info and health endpoints.
type SystemHandler struct {
	info    ServiceInfo
	checker healthChecker
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(info ServiceInfo, checker healthChecker) *SystemHandler {
	return &SystemHandler{info: info, checker: checker}
}

// Register registers the system routes on the router root.
func (h *SystemHandler) Register(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	if h.info.Docs != "" {
		r.GET(h.info.Docs, h.routeList(r))
	}
}

// Root handles GET / with a short service description.
func (h *SystemHandler) Root(c *gin.Context) {
	var docs any
	if h.info.Docs != "" {
		docs = h.info.Docs
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + h.info.Name,
		"version": h.info.Version,
		"docs":    docs,
	})
}

// Health handles GET /health. It answers 503 when a critical dependency is down.
func (h *SystemHandler) Health(c *gin.Context) {
	report := h.checker.CheckAll(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// routeList serves the method and path of every registered route.
func (h *SystemHandler) routeList(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes := r.Routes()
		out := make([]gin.H, 0, len(routes))
		for _, rt := range routes {
			out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
		}
		sort.Slice(out, func(i, j int) bool {
			pi, pj := out[i]["path"].(string), out[j]["path"].(string)
			if pi != pj {
				return pi < pj
			}
			return out[i]["method"].(string) < out[j]["method"].(string)
		})
		c.JSON(http.StatusOK, gin.H{"routes": out})
	}
}
