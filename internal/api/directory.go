package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
)

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleListAgents(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		agents, err := directory.ListUsers(svc.DB.WithContext(c.Request.Context()), models.RoleAgent)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]userView, 0, len(agents))
		for _, a := range agents {
			out = append(out, toUserView(a))
		}
		c.JSON(http.StatusOK, out)
	}
}

func handleListPolicies(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ps, err := directory.ListPolicies(svc.DB.WithContext(c.Request.Context()))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPolicyViews(ps))
	}
}

func handleAgentPolicies(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ps, err := directory.AgentPolicies(svc.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPolicyViews(ps))
	}
}

type assignPolicyRequest struct {
	PolicyID uint `json:"policy_id"`
}

func handleAssignPolicy(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(c, models.RoleAdmin); !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req assignPolicyRequest
		if !bindJSON(c, &req) {
			return
		}
		db := svc.DB.WithContext(c.Request.Context())
		if err := directory.AssignPolicy(db, id, req.PolicyID); err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		ps, err := directory.AgentPolicies(db, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPolicyViews(ps))
	}
}

func handleInbox(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actor(c)
		if !ok {
			return
		}
		if u.Email == "" {
			c.JSON(http.StatusOK, []notificationView{})
			return
		}
		ns, err := notify.Inbox(svc.DB.WithContext(c.Request.Context()), u.Email)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]notificationView, 0, len(ns))
		for _, n := range ns {
			out = append(out, notificationView{ID: n.ID, Subject: n.Subject, Body: n.Body, CreatedAt: n.CreatedAt})
		}
		c.JSON(http.StatusOK, out)
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

func handleChat(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.Assistant == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured"})
			return
		}
		var req chatRequest
		if !bindJSON(c, &req) {
			return
		}
		reply, err := svc.Assistant.Reply(c.Request.Context(), req.Message)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	}
}
