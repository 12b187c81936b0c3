package models

// AllModels returns every model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&Permission{},
		&Role{},
		&RolePermission{},
		&Membership{},
		&Invitation{},
		&Plan{},
		&Subscription{},
		&Client{},
		&Project{},
		&Task{},
		&AuditLog{},
	}
}
