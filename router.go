package crudboot

import "github.com/gin-gonic/gin"

type Route struct {
	Method     string
	Path       string
	Handler    gin.HandlerFunc
	Middleware []gin.HandlerFunc
}

type Controller interface {
	Routes() []Route
}

type RouterGroup struct {
	Path        string
	Middleware  []gin.HandlerFunc
	Controllers []Controller
}

func (s *Server) RegisterControllers(controllers ...Controller) {
	registerRoutes(s.engine, controllers)
}

func (s *Server) RegisterGroups(groups ...RouterGroup) {
	for _, group := range groups {
		routerGroup := s.engine.Group(group.Path)
		if len(group.Middleware) > 0 {
			routerGroup.Use(group.Middleware...)
		}
		registerRoutes(routerGroup, group.Controllers)
	}
}

func registerRoutes(router gin.IRoutes, controllers []Controller) {
	for _, controller := range controllers {
		for _, route := range controller.Routes() {
			handlers := make([]gin.HandlerFunc, 0, len(route.Middleware)+1)
			handlers = append(handlers, route.Middleware...)
			handlers = append(handlers, route.Handler)
			router.Handle(route.Method, route.Path, handlers...)
		}
	}
}
