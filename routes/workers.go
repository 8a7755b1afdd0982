package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"home-services-server/booking"
	"home-services-server/matching"
	"home-services-server/utils"
)

// RegisterWorkerRoutes registers worker routes.
func RegisterWorkerRoutes(router *gin.RouterGroup) {
	router.GET("/match", matchWorkers)
	router.GET("/", listWorkers)
	router.GET("/socket", workerSocket)
}

// matchWorkers returns the eligible pros for a coverage area and category.
// Results are cached briefly per (zip, category); the pool is a read-only
// snapshot per call.
func matchWorkers(c *gin.Context) {
	zip := c.Query("zip")
	category := c.Query("category")

	if !utils.ValidZip(zip) || !utils.KnownZip(zip) {
		respondError(c, &booking.ValidationError{Field: "zip", Message: utils.ZipRejectedMessage})
		return
	}

	if cached, ok := deps.Cache.GetMatches(c.Request.Context(), zip, category); ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "workers": cached, "total_count": len(cached), "cached": true})
		return
	}

	pool, err := deps.Store.ListActiveWorkers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	matched := deps.Engine.Match(matching.Coverage{Zip: zip}, category, pool)
	deps.Cache.SetMatches(c.Request.Context(), zip, category, matched)

	c.JSON(http.StatusOK, gin.H{"success": true, "workers": matched, "total_count": len(matched)})
}

// listWorkers returns the active worker pool.
func listWorkers(c *gin.Context) {
	workers, err := deps.Store.ListActiveWorkers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "workers": workers, "total_count": len(workers)})
}

// workerSocket upgrades the worker's connection for assignment notices.
func workerSocket(c *gin.Context) {
	if deps.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Notifications are not available"})
		return
	}
	deps.Hub.HandleWorkerSocket(c)
}
