package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uint) error
}

// ProductFilter narrows a catalog listing. Zero value matches everything.
type ProductFilter struct {
	Category string
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, f ProductFilter, offset, limit int) (int64, []models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	Top(ctx context.Context, limit int) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uint) error
}

type SessionRepository interface {
	Insert(ctx context.Context, s *models.Session) error
	FindByJTI(ctx context.Context, jti string) (*models.Session, error)
	Revoke(ctx context.Context, jti string) error
	RevokeUser(ctx context.Context, userID uint) error
	// DeleteEnded removes revoked sessions and those expired at or before now.
	DeleteEnded(ctx context.Context, now time.Time) (int64, error)
}

// Repos bundles the three stores the services depend on.
type Repos struct {
	Users    UserRepository
	Products ProductRepository
	Sessions SessionRepository
}

func NewGorm(db *gorm.DB) Repos {
	return Repos{
		Users:    &GormUsers{DB: db},
		Products: &GormProducts{DB: db},
		Sessions: &GormSessions{DB: db},
	}
}
