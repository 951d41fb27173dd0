package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/opspulse/internal/auth"
	"github.com/opspulse/internal/directory"
	"github.com/opspulse/internal/models"
	"github.com/opspulse/internal/notify"
	"github.com/opspulse/internal/threshold"
	"github.com/opspulse/internal/triggers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	monitor   *threshold.Monitor
	notifier  *notify.Notifier
	triggers  *triggers.Triggers
	directory *directory.Directory
	prefs     notify.PreferenceStore
	auth      *auth.Auth
	db        *gorm.DB
	router    *gin.Engine
}

func NewServer(monitor *threshold.Monitor, notifier *notify.Notifier, trig *triggers.Triggers, dir *directory.Directory, prefs notify.PreferenceStore, a *auth.Auth, db *gorm.DB) *Server {
	server := &Server{
		monitor:   monitor,
		notifier:  notifier,
		triggers:  trig,
		directory: dir,
		prefs:     prefs,
		auth:      a,
		db:        db,
		router:    gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(s.auth.Middleware())

	// Threshold management
	thresholds := api.Group("/thresholds")
	{
		thresholds.GET("", s.listThresholds)
		thresholds.GET("/:id", s.getThreshold)
		thresholds.POST("", auth.RequireRole(models.RoleAdmin), s.upsertThreshold)
		thresholds.DELETE("/:id", auth.RequireRole(models.RoleAdmin), s.removeThreshold)
		thresholds.POST("/import", auth.RequireRole(models.RoleAdmin), s.importThresholds)
		thresholds.GET("/export", auth.RequireRole(models.RoleAdmin), s.exportThresholds)
		thresholds.POST("/:id/check", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.checkThreshold)
	}

	// Metric evaluation
	api.POST("/metrics/check", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.checkMetrics)

	// Alert lifecycle
	alerts := api.Group("/alerts")
	{
		alerts.GET("", s.listAlerts)
		alerts.PUT("/:id/acknowledge", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.acknowledgeAlert)
		alerts.PUT("/:id/resolve", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.resolveAlert)
		alerts.DELETE("/resolved", auth.RequireRole(models.RoleAdmin), s.clearResolvedAlerts)
	}

	// Notifications and preferences
	api.POST("/notifications/send", auth.RequireRole(models.RoleAdmin), s.sendNotification)
	api.GET("/notifications", s.listNotifications)
	api.PUT("/notifications/:id/read", s.markNotificationRead)
	api.GET("/preferences", s.getPreferences)
	api.PUT("/preferences", s.updatePreferences)

	// User management
	admin := api.Group("/admin")
	admin.Use(auth.RequireRole(models.RoleAdmin))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func (s *Server) login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", loginReq.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.CheckPassword(loginReq.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.auth.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Threshold handlers

func (s *Server) listThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Thresholds())
}

func (s *Server) getThreshold(c *gin.Context) {
	cfg, ok := s.monitor.Threshold(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "threshold not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) upsertThreshold(c *gin.Context) {
	var cfg threshold.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold id is required"})
		return
	}

	// Shape mistakes are reported but the config is stored anyway; a
	// malformed threshold simply never breaches.
	var warning string
	if err := cfg.Validate(); err != nil {
		warning = err.Error()
	}
	s.monitor.Register(cfg)

	if warning != "" {
		c.JSON(http.StatusCreated, gin.H{"threshold": cfg, "warning": warning})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"threshold": cfg})
}

func (s *Server) removeThreshold(c *gin.Context) {
	s.monitor.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) importThresholds(c *gin.Context) {
	var cfgs []threshold.Config
	if err := c.ShouldBindJSON(&cfgs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.monitor.RegisterAll(cfgs)
	c.JSON(http.StatusOK, gin.H{"imported": len(cfgs)})
}

func (s *Server) exportThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Thresholds())
}

func (s *Server) checkThreshold(c *gin.Context) {
	var req struct {
		Value float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.monitor.Check(c.Param("id"), req.Value))
}

func (s *Server) checkMetrics(c *gin.Context) {
	var req struct {
		Metrics map[string]float64 `json:"metrics" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	breaches := s.monitor.CheckMetrics(req.Metrics)
	for _, b := range breaches {
		if _, err := s.triggers.MetricAlert(c.Request.Context(), b.Alert); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"breaches": breaches})
}

// Alert handlers

func (s *Server) listAlerts(c *gin.Context) {
	if c.Query("status") == "all" {
		c.JSON(http.StatusOK, s.monitor.AllAlerts())
		return
	}

	filter := threshold.AlertFilter{
		Severity:    threshold.Severity(c.Query("severity")),
		DashboardID: c.Query("dashboard"),
	}
	c.JSON(http.StatusOK, s.monitor.ActiveAlerts(&filter))
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	user := c.MustGet("user").(models.User)
	if !s.monitor.Acknowledge(c.Param("id"), user.Username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found or not active"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) resolveAlert(c *gin.Context) {
	if !s.monitor.Resolve(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) clearResolvedAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": s.monitor.ClearResolved()})
}

// Notification handlers

func (s *Server) sendNotification(c *gin.Context) {
	var params notify.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(params.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one recipient is required"})
		return
	}

	// Recipients given by id only get their address filled from the
	// directory; unknown ids stay as-is and fail per-channel downstream.
	for i, rcpt := range params.Recipients {
		if rcpt.Email == "" && rcpt.UserID != 0 {
			if user, err := s.directory.UserByID(rcpt.UserID); err == nil {
				params.Recipients[i] = notify.RecipientFromUser(user)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": s.notifier.Send(c.Request.Context(), &params)})
}

func (s *Server) listNotifications(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	query := s.db.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	var rows []models.Notification
	if err := query.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) markNotificationRead(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusOK)
}

// Preference handlers

func (s *Server) getPreferences(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	prefs, err := s.prefs.GetPreferences(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if prefs == nil {
		prefs = notify.DefaultPreferences()
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) updatePreferences(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var prefs notify.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.prefs.SavePreferences(userID, &prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// User management handlers

func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Username    string      `json:"username" binding:"required"`
		Password    string      `json:"password" binding:"required"`
		Role        models.Role `json:"role" binding:"required"`
		Email       string      `json:"email"`
		DisplayName string      `json:"display_name"`
		Department  string      `json:"department"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Username:    req.Username,
		Role:        req.Role,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Department:  req.Department,
		IsActive:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}
