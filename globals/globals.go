package globals

// Context keys
type ContextKey string

const (
	UserIDKey ContextKey = "userId"
	RoleKey   ContextKey = "role"
	EmailKey  ContextKey = "email"
)
