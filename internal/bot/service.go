package bot

import (
	"github.com/iamwavecut/modbot/internal/db"
)

type service struct {
	platform Platform
	db       db.Client
	routes   *Routes
}

func NewService(platform Platform, db db.Client, routes *Routes) *service {
	return &service{
		platform: platform,
		db:       db,
		routes:   routes,
	}
}

func (s *service) GetPlatform() Platform {
	return s.platform
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetRoutes() *Routes {
	return s.routes
}
