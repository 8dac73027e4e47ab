package routes

import (
	"beautyhub-backend/config"
	"beautyhub-backend/controllers"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Verifier      *utils.TokenVerifier
	Limiter       utils.RateLimiter
	CORSOrigins   []string
	Schedules     *controllers.ScheduleController
	Appointments  *controllers.AppointmentController
	Employees     *controllers.EmployeeController
	Chat          *controllers.ChatController
	ChatSocket    http.Handler
	Notifications *controllers.NotificationController
	Payments      *controllers.PaymentController
	Salons        *controllers.SalonController
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(h.CORSOrigins)))
	r.Use(config.PerformanceLogger())

	authn := utils.AuthMiddleware(h.Verifier)
	admins := utils.RequireRole(utils.RoleAdmin, utils.RoleSuperadmin)
	staff := utils.RequireRole(utils.RoleAdmin, utils.RoleSuperadmin, utils.RoleEmployee)
	users := utils.RequireRole(utils.RoleUser)
	employees := utils.RequireRole(utils.RoleEmployee)
	chatters := utils.RequireRole(utils.RoleUser, utils.RoleEmployee)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.Use(authn)
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")

	// Public catalogue
	mobile := api.Group("/mobile")
	{
		mobile.GET("/schedules/salon/:id", h.Schedules.SalonSchedules)
		mobile.GET("/schedules/filters/:id", h.Schedules.Filters)
		mobile.GET("/schedules/employee/:id", h.Schedules.EmployeeWeek)
		mobile.GET("/schedules/slots", h.Schedules.TimeSlots)
		mobile.GET("/salons/nearby", h.Salons.Nearby)

		mobile.POST("/schedules/appointments", authn, users, h.Appointments.Create)
		mobile.GET("/appointments/my", authn, users, h.Appointments.My)
	}

	// The socket authenticates with ?token since browsers cannot set headers on upgrade.
	api.GET("/ws/chat", gin.WrapH(h.ChatSocket))

	// Provider webhook, authenticated by its signature
	api.POST("/payment/callback", h.Payments.Callback)

	secured := api.Group("")
	secured.Use(authn)
	{
		schedules := secured.Group("/schedules", admins)
		{
			schedules.POST("", h.Schedules.Create)
			schedules.GET("", h.Schedules.List)
			schedules.DELETE("/:id", h.Schedules.Deactivate)
		}

		appointments := secured.Group("/appointments")
		{
			appointments.GET("", staff, h.Appointments.List)
			appointments.PATCH("/:id/status", staff, h.Appointments.ChangeStatus)
			appointments.POST("/:id/cancel", users, h.Appointments.Cancel)
		}

		employee := secured.Group("/employee")
		{
			busy := employee.Group("/busy-slots", utils.RequireRole(utils.RoleEmployee, utils.RoleAdmin))
			busy.GET("", h.Employees.ListBusySlots)
			busy.POST("", h.Employees.CreateBusySlot)
			busy.DELETE("/:id", h.Employees.DeleteBusySlot)

			employee.GET("/post-limits", employees, h.Employees.PostLimits)
			employee.POST("/post-limits/consume", employees, h.Employees.ConsumePost)
		}

		chat := secured.Group("/chat", chatters)
		{
			chat.GET("/conversations", h.Chat.Conversations)
			chat.GET("/conversations/:id/messages", h.Chat.Messages)
		}

		notifications := secured.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.PATCH("/:id/read", h.Notifications.MarkRead)
			notifications.POST("/subscribe", h.Notifications.Subscribe)
			notifications.DELETE("/subscribe", h.Notifications.Unsubscribe)
		}

		secured.DELETE("/salons/:id/top", admins, h.Salons.Demote)

		payment := secured.Group("/payment")
		{
			invoiceLimit := utils.RateLimit(h.Limiter, utils.PaymentLimit)
			directLimit := utils.RateLimit(h.Limiter, utils.DirectPurchaseLimit)
			cardLimit := utils.RateLimit(h.Limiter, utils.CardTokenLimit)
			postBuyers := utils.RequireRole(utils.RoleEmployee, utils.RoleAdmin, utils.RoleSuperadmin)
			// Every direct purchase draws on the caller's own saved card.
			cardHolders := utils.RequireRole(utils.RoleUser, utils.RoleEmployee, utils.RoleAdmin, utils.RoleSuperadmin)

			payment.POST("/employee-post", invoiceLimit, postBuyers, h.Payments.Invoice(services.PurchaseEmployeePost))
			payment.POST("/user-premium", invoiceLimit, users, h.Payments.Invoice(services.PurchaseUserPremium))
			payment.POST("/salon-top", invoiceLimit, admins, h.Payments.Invoice(services.PurchaseSalonTop))

			payment.POST("/direct/employee-post", directLimit, postBuyers, h.Payments.Direct(services.PurchaseEmployeePost))
			payment.POST("/direct/user-premium", directLimit, users, h.Payments.Direct(services.PurchaseUserPremium))
			payment.POST("/direct/salon-top", directLimit, admins, h.Payments.Direct(services.PurchaseSalonTop))

			payment.POST("/card-token/create", cardLimit, cardHolders, h.Payments.CreateCard)
			payment.POST("/card-token/verify", cardLimit, cardHolders, h.Payments.VerifyCard)
			payment.GET("/cards", cardHolders, h.Payments.ListCards)
			payment.DELETE("/cards/:id", cardHolders, h.Payments.DeleteCard)
			payment.PATCH("/cards/:id/default", cardHolders, h.Payments.SetDefaultCard)

			payment.GET("/premium", users, h.Payments.Premium)
			payment.PATCH("/premium/auto-pay", users, h.Payments.SetAutoPay)

			payment.GET("/history", h.Payments.History)
			payment.GET("/:id", h.Payments.Get)
		}
	}

	return r
}
