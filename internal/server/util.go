package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

// parseWait interprets the stop endpoint's wait query parameter.
// Empty means wait with the default bound; "0" or "false" means fire and
// forget; a duration string bounds the wait explicitly.
func parseWait(raw string) (wait bool, timeout time.Duration, err error) {
	switch raw {
	case "":
		return true, defaultStopWait, nil
	case "0", "false", "no":
		return false, 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return false, 0, fmt.Errorf("invalid wait %q: %w", raw, err)
	}
	if d <= 0 {
		return false, 0, nil
	}
	return true, d, nil
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
