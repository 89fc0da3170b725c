package service

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/pmorales/wishtrack/internal/repository"
)

// Service is the business logic layer between the HTTP boundary and the
// repositories. It owns input validation and the purchase/date pairing rule.
type Service struct {
	db     *sql.DB
	logger *logrus.Logger
	Items  repository.WishlistRepository
}

// New creates a new Service with all required dependencies.
func New(db *sql.DB, logger *logrus.Logger, items repository.WishlistRepository) *Service {
	return &Service{db: db, logger: logger, Items: items}
}
