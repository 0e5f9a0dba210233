package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for POS authentication
	HeaderAPIKey       = "X-Wallet-Api-Key"
	HeaderSignature    = "X-Wallet-Signature"
	HeaderSignatureAlt = "X-Signature"
	HeaderRequestID    = "X-Request-Id"

	// Context keys
	CtxRequestID = "request_id"
	CtxSubject   = "subject"
	CtxRole      = "role"
	CtxActor     = "actor"
	CtxRawBody   = "raw_body"

	// ActorPOS marks requests authenticated with the POS API key or signature.
	ActorPOS = "pos"
)

// RequestID tags every request with an id, reusing the caller's when sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// APIKeyAuth admits requests carrying the active POS API key. When tokenSvc is
// non-nil a bearer token with the admin role is accepted instead.
func APIKeyAuth(creds ports.CredentialManager, tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			if tokenSvc != nil {
				if claims := bearerClaims(c, tokenSvc); claims != nil && claims.Role == ports.RoleAdmin {
					setClaims(c, claims)
					c.Next()
					return
				}
			}
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		ok, err := creds.ValidateKey(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Msg("api key validation failed")
			// A missing key pair is reported to the POS as an auth failure.
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code == apperror.ErrNotConfigured().Code {
				err = apperror.New(appErr.Code, appErr.Message, http.StatusUnauthorized)
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		c.Set(CtxActor, ActorPOS)
		c.Next()
	}
}

// WebhookSignature verifies the HMAC of the raw body before anything parses
// it. The verified bytes are stored under CtxRawBody and the body is restored.
func WebhookSignature(config ports.ConfigProvider, creds ports.CredentialManager, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(HeaderSignature)
		if signature == "" {
			signature = c.GetHeader(HeaderSignatureAlt)
		}
		if signature == "" {
			response.Error(c, apperror.ErrMissingSignature())
			c.Abort()
			return
		}

		cfg, err := config.Load(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to load integration config")
			response.Error(c, err)
			c.Abort()
			return
		}
		if cfg.WebhookSecret == "" {
			response.Error(c, apperror.ErrNotConfigured())
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(c, apperror.New("WAL_002", "Request body too large", http.StatusRequestEntityTooLarge))
			} else {
				response.Error(c, apperror.Validation("cannot read request body"))
			}
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !creds.Verify(cfg.WebhookSecret, body, signature) {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("webhook signature mismatch")
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Set(CtxRawBody, body)
		c.Set(CtxActor, ActorPOS)
		c.Next()
	}
}

// JWTAuth validates bearer tokens. When roles are given the token's role must
// be one of them.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := bearerClaims(c, tokenSvc)
		if claims == nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			log.Warn().Str("subject", claims.Subject).Str("role", claims.Role).Msg("role not permitted")
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, tokenSvc ports.TokenService) *ports.TokenClaims {
	authHeader := c.GetHeader("Authorization")
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenStr == "" {
		return nil
	}
	claims, err := tokenSvc.Validate(tokenStr)
	if err != nil {
		return nil
	}
	return claims
}

func setClaims(c *gin.Context, claims *ports.TokenClaims) {
	c.Set(CtxSubject, claims.Subject)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxActor, claims.Role+":"+claims.Subject)
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
