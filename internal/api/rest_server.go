package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/tower-stacker/internal/auth"
	"github.com/annel0/tower-stacker/internal/eventbus"
	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/annel0/tower-stacker/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API таблицы лидеров
type RestServer struct {
	router  *gin.Engine
	repo    leaderboard.Repository
	bus     eventbus.EventBus
	admin   auth.AdminAuthenticator
	nodeID  string
	port    string
	timeout time.Duration
	metrics *ServerMetrics
	stats   *LeaderboardMetrics
	logger  *logging.Logger
	layout  game.Layout
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port           string                 // адрес для запуска сервера, ":8088"
	Repo           leaderboard.Repository // хранилище результатов
	Bus            eventbus.EventBus      // nil - события не публикуются
	Admin          auth.AdminAuthenticator
	NodeID         string        // источник событий на шине
	RequestTimeout time.Duration // таймаут обращения к хранилищу
	Mode           string        // режим gin: debug | release | test
	Layout         game.Layout   // размеры поля для /api/settings; нулевые поля - по умолчанию

	// Registry - регистр Prometheus; nil - дефолтный (и /metrics отдаёт его).
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// GenericResponse - ответ служебных эндпоинтов
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse - ошибка в формате клиента: {message, field}
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// DifficultySettings - пресет сложности для клиента.
type DifficultySettings struct {
	Name      game.Difficulty `json:"name"`
	MoveSpeed float64         `json:"moveSpeed"`
	Tolerance float64         `json:"tolerance"`
}

// GameSettings - параметры игры, которые клиент получает от сервера.
type GameSettings struct {
	Difficulties []DifficultySettings `json:"difficulties"`
	Layout       game.Layout          `json:"layout"`
	TotalParts   int                  `json:"totalParts"`
	MaxDiscount  int                  `json:"maxDiscount"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Second
	}
	if config.NodeID == "" {
		config.NodeID = "stacker-api"
	}
	switch config.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(config.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	// otelgin первым, чтобы RequestLogger взял trace-id из span
	router.Use(otelgin.Middleware("stacker_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("stacker_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	router.Use(middleware.CORS())

	server := &RestServer{
		router:  router,
		repo:    config.Repo,
		bus:     config.Bus,
		admin:   config.Admin,
		nodeID:  config.NodeID,
		port:    config.Port,
		timeout: config.RequestTimeout,
		metrics: NewServerMetrics(),
		stats:   NewLeaderboardMetrics(reg),
		logger:  config.Logger,
		layout:  config.Layout.Normalize(),
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")

	scores := api.Group("/scores")
	{
		scores.GET("", rs.handleListScores)
		scores.POST("", rs.handleCreateScore)
		scores.GET("/:id", rs.handleGetScore)
	}
	api.GET("/settings", rs.handleSettings)
	api.GET("/server", rs.handleServerInfo)

	// Эндпоинт для аутентификации (без JWT защиты)
	api.POST("/auth/login", rs.handleLogin)

	// Модерация (JWT + права администратора)
	admin := api.Group("/admin")
	admin.Use(rs.jwtMiddleware(), rs.adminMiddleware())
	{
		admin.DELETE("/scores/:id", rs.handleDeleteScore)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Router возвращает http.Handler сервера (для httptest и встраивания).
func (rs *RestServer) Router() http.Handler { return rs.router }

// Port возвращает адрес, на котором слушает сервер.
func (rs *RestServer) Port() string { return rs.port }

func (rs *RestServer) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), rs.timeout)
}

// handleListScores возвращает рейтинг: GET /api/scores?limit=N
func (rs *RestServer) handleListScores(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "limit must be an integer", Field: "limit"})
			return
		}
		limit = n
	}

	ctx, cancel := rs.requestContext(c)
	defer cancel()

	records, err := rs.repo.ListTop(ctx, limit)
	if err != nil {
		rs.internalError(c, "список результатов", err)
		return
	}
	if records == nil {
		records = []leaderboard.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// handleCreateScore сохраняет результат победы: POST /api/scores
func (rs *RestServer) handleCreateScore(c *gin.Context) {
	var sub leaderboard.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		rs.stats.rejected.Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid JSON body"})
		return
	}

	ctx, cancel := rs.requestContext(c)
	defer cancel()

	rec, err := rs.repo.Submit(ctx, sub)
	var verr *leaderboard.ValidationError
	if errors.As(err, &verr) {
		rs.stats.rejected.Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: verr.Message, Field: verr.Field})
		return
	}
	if err != nil {
		rs.internalError(c, "сохранение результата", err)
		return
	}

	rs.stats.observe(rec)
	rs.info("🏆 Новый результат %s: %s score=%d discount=%d%%", rec.ID, rec.PlayerName, rec.Score, rec.DiscountEarned)
	rs.publish(c, eventbus.EventScoreSubmitted, 5, eventbus.ScoreEvent{
		RecordID:       rec.ID,
		PlayerName:     rec.PlayerName,
		Score:          rec.Score,
		DiscountEarned: rec.DiscountEarned,
		PartsStacked:   rec.PartsStacked,
	})

	c.JSON(http.StatusCreated, rec)
}

// handleGetScore возвращает один результат: GET /api/scores/:id
func (rs *RestServer) handleGetScore(c *gin.Context) {
	ctx, cancel := rs.requestContext(c)
	defer cancel()

	rec, err := rs.repo.Get(ctx, c.Param("id"))
	if errors.Is(err, leaderboard.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "score not found"})
		return
	}
	if err != nil {
		rs.internalError(c, "чтение результата", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleDeleteScore удаляет результат (модерация): DELETE /api/admin/scores/:id
func (rs *RestServer) handleDeleteScore(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := rs.requestContext(c)
	defer cancel()

	err := rs.repo.Delete(ctx, id)
	if errors.Is(err, leaderboard.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "score not found"})
		return
	}
	if err != nil {
		rs.internalError(c, "удаление результата", err)
		return
	}

	rs.stats.deleted.Inc()
	rs.info("🗑️ Результат %s удалён администратором %s", id, c.GetString("username"))
	rs.publish(c, eventbus.EventScoreDeleted, 5, eventbus.ScoreEvent{RecordID: id})

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Результат удалён"})
}

// handleSettings возвращает пресеты сложности и размеры поля.
func (rs *RestServer) handleSettings(c *gin.Context) {
	layout := rs.layout
	settings := GameSettings{
		Layout:      layout,
		TotalParts:  layout.MaxFloors,
		MaxDiscount: game.MaxDiscount,
	}
	for _, d := range game.Difficulties() {
		p := game.ProfileFor(d)
		settings.Difficulties = append(settings.Difficulties, DifficultySettings{
			Name:      d,
			MoveSpeed: p.MoveSpeed,
			Tolerance: p.TolerancePx,
		})
	}
	c.JSON(http.StatusOK, settings)
}

// handleLogin обрабатывает вход администратора
func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "username and password are required"})
		return
	}

	token, err := rs.admin.Login(req.Username, req.Password)
	if err != nil {
		rs.warn("🔒 Неудачный вход администратора %q с %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid username or password"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int64(auth.TokenTTL / time.Second),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := map[string]interface{}{
		"name":        "Tower Stacker Leaderboard",
		"node":        rs.nodeID,
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.1f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	}
	if rs.bus != nil {
		info["eventbus"] = rs.bus.Metrics()
	}
	if cached, ok := rs.repo.(*leaderboard.CachedRepo); ok {
		info["cache"] = cached.CacheMetrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// publish отправляет событие на шину; ошибка шины не влияет на ответ клиенту.
func (rs *RestServer) publish(c *gin.Context, eventType string, priority int, payload eventbus.ScoreEvent) {
	if rs.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(rs.nodeID, eventType, priority, payload)
	if err != nil {
		rs.warn("⚠️ Событие %s не сформировано: %v", eventType, err)
		return
	}
	ev.CorrelationID = middleware.TraceID(c)
	if err := rs.bus.Publish(c.Request.Context(), ev); err != nil {
		rs.warn("⚠️ Событие %s не опубликовано: %v", eventType, err)
	}
}

func (rs *RestServer) internalError(c *gin.Context, op string, err error) {
	rs.errorf("❌ %s: %v (trace=%s)", op, err, middleware.TraceID(c))
	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "storage timeout"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
}

func (rs *RestServer) info(format string, args ...interface{}) {
	if rs.logger != nil {
		rs.logger.Info(format, args...)
		return
	}
	logging.Info(format, args...)
}

func (rs *RestServer) warn(format string, args ...interface{}) {
	if rs.logger != nil {
		rs.logger.Warn(format, args...)
		return
	}
	logging.Warn(format, args...)
}

func (rs *RestServer) errorf(format string, args ...interface{}) {
	if rs.logger != nil {
		rs.logger.Error(format, args...)
		return
	}
	logging.Error(format, args...)
}
