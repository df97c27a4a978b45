// Package router wires HTTP routes to handlers and applies the JWT and
// role middleware per group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boat-boarding/internal/handler"
	"github.com/iliyamo/boat-boarding/internal/middleware"
	"github.com/iliyamo/boat-boarding/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints.  Register, login and the
// refresh flows are open; /v1/me and bearer-only logout sit behind the
// JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout by refresh token needs no JWT; the handler also accepts an
	// authenticated revoke-all when wrapped below.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterBoarding registers the boarding lifecycle, check-in, booking
// desk, event and reporting endpoints.  Role boundaries:
//
//	VIEWER         read-only: active session, stats, manifests, bookings
//	CHECKIN_STAFF  resolve, confirm, skip and the group variants
//	BOOKING_STAFF  booking creation and imports
//	ADMIN          all of the above plus sessions, departures, reset,
//	               capacity and event control
// The report cache middleware is applied per route on the stats and
// manifest endpoints only, after JWT and role checks, so cached responses
// are never served to unauthenticated callers.
func RegisterBoarding(e *echo.Echo, jwtSecret string, reportCache echo.MiddlewareFunc,
	s *handler.SessionHandler, ch *handler.CheckinHandler,
	b *handler.BookingHandler, ev *handler.EventHandler, st *handler.StatsHandler) {

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))

	readRoles := []string{model.RoleViewer, model.RoleCheckinStaff, model.RoleBookingStaff, model.RoleAdmin}
	gateRoles := []string{model.RoleCheckinStaff, model.RoleAdmin}
	deskRoles := []string{model.RoleBookingStaff, model.RoleAdmin}

	read := v1.Group("", middleware.RequireRole(readRoles...))
	read.GET("/sessions/active", s.Active)
	read.GET("/stats", st.Stats, reportCache)
	read.GET("/boats/:number/manifest", st.Manifest, reportCache)
	read.GET("/bookings/:ref", b.GetByRef)
	read.GET("/events/active", ev.GetActive)

	gate := v1.Group("", middleware.RequireRole(gateRoles...))
	gate.GET("/checkin/resolve", ch.Resolve)
	gate.POST("/checkin/confirm", ch.Confirm)
	gate.POST("/checkin/skip", ch.Skip)
	gate.POST("/checkin/group/confirm", ch.GroupConfirm)
	gate.POST("/checkin/group/skip", ch.GroupSkip)

	desk := v1.Group("", middleware.RequireRole(deskRoles...))
	desk.POST("/bookings", b.Create)
	desk.POST("/bookings/bulk", b.CreateBulk)

	admin := v1.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/sessions", s.Start)
	admin.POST("/boats/:number/depart", s.Depart)
	admin.POST("/checkin/reset", ch.Reset)
	admin.PATCH("/boats/:number/capacity", s.UpdateCapacity)
	admin.PUT("/events/active", ev.SetActive)
}
