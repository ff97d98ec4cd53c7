package server

const (
	RouteFreeAgent    = "/freeagent"
	RouteAuthCallback = "/auth/callback"
	RouteAuthConnect  = "/auth/connect"
	RouteAdminUsers   = "/admin/users"
)
