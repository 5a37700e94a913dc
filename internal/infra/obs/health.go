package obs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandlers answers liveness and readiness probes. Readiness
// delegates to the wired check (a storage ping in practice) so the
// service is not routed traffic before its backends answer.
type HealthHandlers struct {
	Ready func() error
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
