package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradientlab/ticketflow-go/internal/api/handlers"
)

// RegisterRoutes wires the ticket endpoints onto r. Handlers are built
// by the composition root and passed in.
func RegisterRoutes(r *gin.Engine, appName string, th *handlers.TicketHandler) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": appName + " API", "status": "running"})
	})

	tickets := r.Group("/ticket")
	{
		tickets.POST("/create", th.CreateTicket)
		tickets.GET("/status", th.GetTicketStatus)
		tickets.GET("/data", th.GetTicketData)
	}
}
