package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/loop"
	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
)

// registerRoutes sets up the API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	api := router.Group("/api")

	api.GET("/status", handleStatus(db, cfg))
	api.GET("/projects", handleProjects(db))
	api.GET("/projects/:id", handleProjectDetail(db))
	api.GET("/requests", handleRequests(db))
	api.GET("/requests/:id", handleRequestDetail(db))

	api.GET("/settings", handleGetSettings(cfg))
	api.PUT("/settings", handleUpdateSettings(cfg))
	api.POST("/loop/pause", handleSetPaused(cfg, true))
	api.POST("/loop/resume", handleSetPaused(cfg, false))
}

func handleStatus(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		queue, err := queueSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		phases, err := phaseSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		pid, running := loop.DaemonStatus(cfg.PIDPath())
		set := settings.Load(cfg.SettingsPath())

		c.JSON(http.StatusOK, gin.H{
			"queue":          queue,
			"phases":         phases,
			"daemon_running": running,
			"daemon_pid":     pid,
			"loop_paused":    set.LoopPaused,
		})
	}
}

func handleProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := projectSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func handleProjectDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		prj, err := store.GetProject(db, id)
		if err != nil {
			notFoundOrError(c, err)
			return
		}
		infra, err := store.ListProjectInfra(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		requests, err := store.ListRequests(db, id, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"project":  prj,
			"infra":    infra,
			"requests": requests,
		})
	}
}

func handleRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var prjID uint
		if raw := c.Query("project"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
				return
			}
			prjID = uint(v)
		}
		status := models.Status(c.Query("status"))
		if status != "" && !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		views, err := store.ListRequests(db, prjID, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleRequestDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		view, err := store.GetRequestView(db, id)
		if err != nil {
			notFoundOrError(c, err)
			return
		}
		infra, err := store.EffectiveInfrastructure(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"request": view,
			"infra":   infra,
		})
	}
}

func handleGetSettings(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, settings.Load(cfg.SettingsPath()))
	}
}

// handleUpdateSettings merges the request body over the current settings, so
// clients can PUT only the fields they change.
func handleUpdateSettings(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := settings.Load(cfg.SettingsPath())
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := settings.Save(cfg.SettingsPath(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, settings.Load(cfg.SettingsPath()))
	}
}

// handleSetPaused flips the loop pause flag. The daemon picks it up on its
// next settings reload.
func handleSetPaused(cfg *config.Config, paused bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := settings.Load(cfg.SettingsPath())
		s.LoopPaused = paused
		if err := settings.Save(cfg.SettingsPath(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"loop_paused": paused})
	}
}

func idParam(c *gin.Context) (uint, bool) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(v), true
}

func notFoundOrError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
