package server

func (s *Server) initRoutes() {
	// Action dispatch (API-key authenticated)
	s.RegisterRouteFunc("POST "+RouteFreeAgent, ChainMiddleware(s.FreeAgentHandler(), s.APIMiddleware()...))

	// OAuth flow (browser-facing, no API key)
	s.RegisterRouteFunc("GET "+RouteAuthConnect, ChainMiddleware(s.ConnectHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.APIMiddleware()...))

	// Admin (API-key authenticated, JSON)
	s.RegisterRouteFunc("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersHandler(), s.APIMiddleware()...))
}
