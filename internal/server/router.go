package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securenotes/backend/internal/document"
	"github.com/securenotes/backend/internal/ratelimit"
	"github.com/securenotes/backend/internal/session"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

var (
	errMissingSessionService  = errors.New("session service dependency required")
	errMissingDocumentService = errors.New("document service dependency required")
)

// Dependencies carries the collaborators of the HTTP layer. Limiter is
// optional; a nil limiter disables quota enforcement.
type Dependencies struct {
	Sessions       *session.Service
	Documents      *document.Service
	Limiter        *ratelimit.Limiter
	Logger         *zap.Logger
	AllowedOrigins []string
	TrustProxy     bool
}

// NewHTTPHandler wires the route table, middleware and handlers.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionService
	}
	if deps.Documents == nil {
		return nil, errMissingDocumentService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:   deps.Sessions,
		documents:  deps.Documents,
		limiter:    deps.Limiter,
		logger:     logger,
		trustProxy: deps.TrustProxy,
	}

	router.Use(handler.limit(ratelimit.ClassGlobal, handler.ipKey))

	router.GET("/healthz", handleHealth)

	api := router.Group("/api")
	api.POST("/sessions", handler.limit(ratelimit.ClassSessionCreate, handler.ipKey), handler.handleCreateSession)
	api.GET("/sessions/:address", handler.limit(ratelimit.ClassSessionAccess, addressKey), handler.handleValidateSession)
	api.DELETE("/sessions/:address", handler.limit(ratelimit.ClassSessionAccess, addressKey), handler.handleEndSession)

	docs := api.Group("/sessions/:address/documents")
	docs.Use(handler.limit(ratelimit.ClassDocument, addressKey))
	docs.GET("", handler.handleListDocuments)
	docs.POST("", handler.handleCreateDocument)
	docs.GET("/:url", handler.handleGetDocument)
	docs.PUT("/:url", handler.handleUpdateDocument)
	docs.DELETE("/:url", handler.handleDeleteDocument)

	return router, nil
}

type httpHandler struct {
	sessions   *session.Service
	documents  *document.Service
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
	trustProxy bool
}

type keyFunc func(c *gin.Context) string

func (h *httpHandler) ipKey(c *gin.Context) string {
	return ratelimit.ClientIP(c.Request, h.trustProxy)
}

func addressKey(c *gin.Context) string {
	return c.Param("address")
}

// limit gates a route on the quota for the given class, keyed per request by
// the supplied key function. Rejections short-circuit before the handler.
func (h *httpHandler) limit(class ratelimit.Class, key keyFunc) gin.HandlerFunc {
	if h.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		decision := h.limiter.Check(class, key(c))
		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter / time.Second)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Try again later.",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "ok"}})
}
