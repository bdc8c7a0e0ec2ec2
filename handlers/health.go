package handlers

import (
	"net/http"

	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// Healthz reports the latest dependency health snapshot.
func Healthz(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Mongo {
		code = http.StatusServiceUnavailable
	}
	for _, ok := range status.Redis {
		if !ok {
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, status)
}
