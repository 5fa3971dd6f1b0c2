package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

const maxAuditBody = 2000

// sensitiveKeys are matched case-insensitively as substrings of JSON keys.
var sensitiveKeys = []string{"password", "token", "secret", "authheadervalue", "apikey", "api_key"}

// AuditLog records write operations (POST/PUT/PATCH/DELETE) to system_logs.
func AuditLog(logs *services.SystemLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(raw)
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		actor := GetSubject(c)
		if actor == "" {
			actor = "anonymous"
		}

		extra, _ := json.Marshal(map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   body,
			"audit":  true,
		})

		level := services.LogLevelInfo
		if status >= 400 {
			level = services.LogLevelWarning
		}
		entry := &models.SystemLog{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(actor, method, c.Request.URL.Path, status),
			Actor:     actor,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra:     string(extra),
		}
		if err := logs.Create(entry); err != nil {
			logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("[Audit] Failed to write audit entry")
		}
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/publishers/:id" + "PUT" gives module="Publishers", action="Update"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	module = strings.SplitN(path, "/", 2)[0]
	if module == "" {
		module = "unknown"
	}
	words := strings.Fields(strings.ReplaceAll(module, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	module = strings.Join(words, " ")

	switch {
	case strings.HasSuffix(fullPath, "/test"):
		action = "Test"
	case method == "POST":
		action = "Create"
	case method == "PUT", method == "PATCH":
		action = "Update"
	case method == "DELETE":
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

func formatAuditMessage(actor, method, path string, status int) string {
	outcome := "OK"
	if status < 200 || status >= 300 {
		outcome = "Failed"
	}
	if actor == "" {
		actor = "anonymous"
	}
	return fmt.Sprintf("[Audit] %s %s %s -> %s", actor, method, path, outcome)
}

// maskSensitiveFields replaces secret values in a JSON body. Bodies that are
// not JSON are returned unchanged.
func maskSensitiveFields(raw []byte) string {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	masked, err := json.Marshal(maskValue(doc))
	if err != nil {
		return string(raw)
	}
	return string(masked)
}

func maskValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if isSensitiveKey(k) {
				if s, ok := inner.(string); ok && s == "" {
					continue
				}
				val[k] = "***"
				continue
			}
			val[k] = maskValue(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = maskValue(inner)
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
