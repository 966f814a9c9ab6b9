package input

import (
	"collectorkit/internal/domain/entities"
)

type SessionUseCase interface {
	Issue(user entities.User, customerID int64, language string, permissions ...string) (*entities.Session, error)
	Parse(token string) (*entities.Session, error)
}
