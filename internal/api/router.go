package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Routes groups every handler mounted by NewRouter.
type Routes struct {
	Dashboard *DashboardHandler
	Contacts  *ContactHandler
	Campaign  *CampaignHandler
	Calls     *CallHandler
	Webhooks  interface{ Register(gin.IRouter) }
	WS        http.HandlerFunc
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Register mounts the routes on r.
func (rt Routes) Register(r *gin.Engine) {
	r.Use(CORS())

	if rt.Webhooks != nil {
		rt.Webhooks.Register(r)
	}
	if rt.WS != nil {
		r.GET("/ws", gin.WrapF(rt.WS))
	}

	apiGroup := r.Group("/api")
	{
		if rt.Dashboard != nil {
			apiGroup.GET("/health", rt.Dashboard.Health)
		}

		// Lead list
		if rt.Contacts != nil {
			apiGroup.GET("/contacts", rt.Contacts.GetContacts)
			apiGroup.POST("/contacts", rt.Contacts.CreateContact)
			apiGroup.POST("/contacts/upload", rt.Contacts.UploadContacts)
			apiGroup.POST("/contacts/reset", rt.Contacts.ResetContacts)
			apiGroup.DELETE("/contacts/:id", rt.Contacts.DeleteContact)
			apiGroup.GET("/contacts/export", rt.Contacts.ExportContacts)
		}

		// Campaign control
		if rt.Campaign != nil {
			apiGroup.GET("/status", rt.Campaign.GetStatus)
			apiGroup.POST("/campaign/start", rt.Campaign.StartCampaign)
			apiGroup.POST("/campaign/stop", rt.Campaign.StopCampaign)
			apiGroup.POST("/hangup", rt.Campaign.HangUp)
			apiGroup.POST("/calls/single", rt.Campaign.SingleCall)
		}

		// Call history
		if rt.Calls != nil {
			apiGroup.GET("/calls", rt.Calls.GetCalls)
			apiGroup.GET("/calls/stats", rt.Calls.GetStats)
			apiGroup.GET("/calls/:id", rt.Calls.GetCall)
		}
	}
}
