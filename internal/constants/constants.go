package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID         = "user_id"
	ContextKeyUser           = "user"
	ContextKeyOrganizationID = "organization_id"
	ContextKeyDecision       = "authz_decision"
	ContextKeyRequestID      = "request_id"
	ContextKeyLogger         = "logger"
	SessionCookieName        = "agency_session"
	RequestIDHeader          = "X-Request-ID"
)

// Auth
const (
	MinPasswordLength = 8
	BearerScheme      = "bearer"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// System role names. Only used to seed and look up reference data; the owner
// bypass is driven by Role.IsSystemOwner.
const (
	RoleNameOwner  = "Owner"
	RoleNameAdmin  = "Admin"
	RoleNameMember = "Member"
)

// Permission keys, resource:action.
const (
	PermOrgRead      = "org:read"
	PermOrgWrite     = "org:write"
	PermOrgDelete    = "org:delete"
	PermBillingRead  = "billing:read"
	PermBillingWrite = "billing:write"
	PermUsersRead    = "users:read"
	PermUsersInvite  = "users:invite"
	PermUsersRemove  = "users:remove"
	PermRolesRead    = "roles:read"
	PermRolesAssign  = "roles:assign"
	PermTasksWrite   = "tasks:write"
)

// Plans and invitations
const (
	DefaultMaxUsers       = 2
	DefaultInvitationTTL  = 7 * 24 * time.Hour
	InvitationTokenBytes  = 32
	DefaultReaperInterval = time.Hour
)
