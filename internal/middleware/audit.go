package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/logger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxAuditBody = 2000

var titleCaser = cases.Title(language.English)

// AuditLog records write operations to system_logs, tagged with the request ID.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut &&
			method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = maskSensitiveFields(string(bodyBytes))
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if userID := GetUserID(c); userID > 0 {
			uid = &userID
		}

		level := "info"
		if status >= http.StatusInternalServerError {
			level = "error"
		} else if status >= http.StatusBadRequest {
			level = "warning"
		}

		extra, _ := json.Marshal(map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
			"audit":  true,
		})

		services.RecordLog(&models.SystemLog{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status),
			UserID:    uid,
			RequestID: logger.GetRequestID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra:     string(extra),
		})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/test-plans/:id" + "PUT" → module="Test Plans", action="Update"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	// Nested resources are named after their last static segment.
	module = "unknown"
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") && !strings.HasPrefix(seg, "*") {
			module = seg
			if module != "projects" {
				break
			}
		}
	}
	module = titleCaser.String(strings.ReplaceAll(module, "-", " "))

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut, http.MethodPatch:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

func formatAuditMessage(username, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	if username == "" {
		username = "anonymous"
	}
	b.WriteString(username)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"old_password":  true,
	"new_password":  true,
	"refresh_token": true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
}

const unparsedBody = "[omitted: not JSON]"

// maskSensitiveFields re-encodes a JSON body with sensitive values replaced,
// at any depth. Bodies that do not parse are dropped.
func maskSensitiveFields(body string) string {
	if strings.TrimSpace(body) == "" {
		return body
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return unparsedBody
	}
	out, err := json.Marshal(maskValue(v))
	if err != nil {
		return unparsedBody
	}
	return string(out)
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if sensitiveKeys[strings.ToLower(k)] {
				t[k] = "***"
				continue
			}
			t[k] = maskValue(val)
		}
	case []interface{}:
		for i := range t {
			t[i] = maskValue(t[i])
		}
	}
	return v
}
