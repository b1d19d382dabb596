package api

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, svc *Services) {
	router.GET("/healthz", handleHealth)

	api := router.Group("/api")
	api.Use(resolveActor(svc.DB))

	// Directory.
	api.GET("/agents", handleListAgents(svc))
	api.GET("/policies", handleListPolicies(svc))
	api.GET("/agents/:id/policies", handleAgentPolicies(svc))
	api.POST("/agents/:id/policies", handleAssignPolicy(svc))

	// Availability and slots.
	api.POST("/availability", handleSaveAvailability(svc))
	api.GET("/agents/:id/availability", handleListAvailability(svc))
	api.POST("/availability/:id/toggle-off", handleToggleOff(svc))
	api.DELETE("/availability/:id", handleDeleteAvailability(svc))
	api.GET("/agents/:id/slots", handleSlots(svc))

	// Appointments.
	api.POST("/appointments", handleSchedule(svc))
	api.GET("/agents/:id/appointments", handleAgentAppointments(svc))
	api.GET("/employees/:id/appointments", handleEmployeeAppointments(svc))
	api.PUT("/appointments/:id/status", handleAppointmentStatus(svc))
	api.POST("/appointments/:id/cancel", handleCancelAppointment(svc))

	// Claims.
	api.POST("/claims", handleSubmitClaim(svc))
	api.GET("/claims", handleListClaims(svc))
	api.GET("/claims/:id", handleGetClaim(svc))
	api.POST("/claims/:id/assign", handleAssignAgent(svc))
	api.POST("/claims/:id/suggestion", handleSuggestion(svc))
	api.PUT("/claims/:id/status", handleClaimStatus(svc))
	api.POST("/claims/:id/settle", handleSettle(svc))
	api.POST("/claims/:id/documents", handleUploadDocument(svc))
	api.GET("/claims/:id/notes", handleClaimNotes(svc))
	api.GET("/employees/:id/claim-stats", handleEmployeeStats(svc))

	// Notifications and assistant.
	api.GET("/notifications", handleInbox(svc))
	api.POST("/chat", handleChat(svc))
}
