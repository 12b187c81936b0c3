package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/authz"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/token"
)

// Router carries everything the API routes need.
type Router struct {
	Auth          *services.AuthService
	Organizations *services.OrganizationService
	Invitations   *services.InvitationService
	Billing       *services.BillingService
	Tasks         *services.TaskService
	Resolver      *authz.Resolver
	Tokens        *token.Manager
}

// Register mounts the API under /api. Session middleware must already be
// installed on r.
func (rt Router) Register(r gin.IRouter) {
	authHandler := NewAuthHandler(rt.Auth, rt.Tokens)
	orgHandler := NewOrganizationHandler(rt.Organizations)
	invHandler := NewInvitationHandler(rt.Invitations)
	billingHandler := NewBillingHandler(rt.Billing)
	taskHandler := NewTaskHandler(rt.Tasks)

	requireAuth := middleware.RequireAuth(rt.Auth, rt.Tokens)
	can := func(permission string, locate middleware.Locator) gin.HandlerFunc {
		return middleware.RequirePermission(rt.Resolver, permission, locate)
	}
	org := middleware.OrganizationParam("id")

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		api.POST("/invitations/accept", requireAuth, invHandler.AcceptInvitation)

		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.GET("/:id", can(constants.PermOrgRead, org), orgHandler.GetOrganization)
			orgs.PUT("/:id", can(constants.PermOrgWrite, org), orgHandler.UpdateOrganization)
			orgs.DELETE("/:id", can(constants.PermOrgDelete, org), orgHandler.DeleteOrganization)

			orgs.GET("/:id/members", can(constants.PermUsersRead, org), orgHandler.ListMembers)
			orgs.DELETE("/:id/members/:user_id", can(constants.PermUsersRemove, org), orgHandler.RemoveMember)
			orgs.PUT("/:id/members/:user_id/role", can(constants.PermRolesAssign, org), orgHandler.ChangeMemberRole)
			orgs.GET("/:id/roles", can(constants.PermRolesRead, org), orgHandler.ListRoles)
			orgs.GET("/:id/seats", can(constants.PermUsersRead, org), orgHandler.GetSeats)
			orgs.GET("/:id/audit", can(constants.PermOrgWrite, org), orgHandler.ListAuditLog)

			orgs.POST("/:id/invitations", can(constants.PermUsersInvite, org), invHandler.Invite)
			orgs.GET("/:id/invitations", can(constants.PermUsersRead, org), invHandler.ListInvitations)
			orgs.DELETE("/:id/invitations/:invitation_id", can(constants.PermUsersInvite, org), invHandler.RevokeInvitation)

			orgs.GET("/:id/billing", can(constants.PermBillingRead, org), billingHandler.GetBilling)
			orgs.PUT("/:id/billing/plan", can(constants.PermBillingWrite, org), billingHandler.ChangePlan)

			orgs.GET("/:id/clients", can(constants.PermOrgRead, org), taskHandler.ListClients)
			orgs.POST("/:id/clients", can(constants.PermOrgWrite, org), taskHandler.CreateClient)
		}

		clients := api.Group("/clients")
		clients.Use(requireAuth)
		{
			client := middleware.ClientParam("id")
			clients.GET("/:id/projects", can(constants.PermOrgRead, client), taskHandler.ListProjects)
			clients.POST("/:id/projects", can(constants.PermOrgWrite, client), taskHandler.CreateProject)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			project := middleware.ProjectParam("id")
			projects.GET("/:id/tasks", can(constants.PermOrgRead, project), taskHandler.ListTasks)
			projects.POST("/:id/tasks", can(constants.PermTasksWrite, project), taskHandler.CreateTask)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			task := middleware.TaskParam("id")
			tasks.GET("/:id", can(constants.PermOrgRead, task), taskHandler.GetTask)
			tasks.PATCH("/:id", can(constants.PermTasksWrite, task), taskHandler.UpdateTask)
			tasks.DELETE("/:id", can(constants.PermTasksWrite, task), taskHandler.DeleteTask)
		}
	}
}
