package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
)

// ImageSaver persists an uploaded image and returns the URL it is served under.
type ImageSaver interface {
	Save(filename string, r io.Reader) (string, error)
}

type AdminService struct {
	Users    repo.UserRepository
	Products repo.ProductRepository
	Sessions repo.SessionRepository
	Images   ImageSaver
	Index    search.Index
	Events   events.Publisher
}

type UserInput struct {
	Username string
	Password string
	IsAdmin  bool
}

// ProductInput holds raw form values; numbers are parsed by the service.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Sales       string
	Category    string
	Image       string
}

// Upload is a multipart file handed over by the HTTP layer.
type Upload struct {
	Filename string
	Body     io.Reader
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Users.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *AdminService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_user", "username", in.Username)

	if err := checkCredentials(in.Username, in.Password, false); err != nil {
		return nil, err
	}
	if err := s.usernameFree(ctx, in.Username, 0); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: in.Username, PasswordHash: pwHash, IsAdmin: in.IsAdmin}
	if err := s.Users.Insert(ctx, user); err != nil {
		return nil, mapWriteErr("insert user", err)
	}
	l.Info("user_created", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// UpdateUser rewrites username and admin flag; the password hash changes only
// when a new password is supplied. The reserved admin account keeps its name
// and flag.
func (s *AdminService) UpdateUser(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update_user", "user_id", id)

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkCredentials(in.Username, in.Password, true); err != nil {
		return nil, err
	}
	if user.Username == models.ReservedAdmin && (in.Username != models.ReservedAdmin || !in.IsAdmin) {
		return nil, fmt.Errorf("%w: the %s account cannot be renamed or demoted", ErrPermission, models.ReservedAdmin)
	}
	if in.Username != user.Username {
		if err := s.usernameFree(ctx, in.Username, user.ID); err != nil {
			return nil, err
		}
	}

	user.Username = in.Username
	user.IsAdmin = in.IsAdmin
	if in.Password != "" {
		pwHash, err := hash.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = pwHash
	}
	if err := s.Users.Update(ctx, user); err != nil {
		return nil, mapWriteErr("update user", err)
	}
	l.Info("user_updated", "password_changed", in.Password != "")
	return user, nil
}

// DeleteUser refuses administrators and revokes the sessions of the deleted user.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete_user", "user_id", id)

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		l.Warn("delete_user_refused", "status", 403, "reason", "user is an administrator")
		return fmt.Errorf("%w: administrators cannot be deleted", ErrPermission)
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return mapWriteErr("delete user", err)
	}
	if err := s.Sessions.RevokeUser(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	l.Info("user_deleted")
	return nil
}

func (s *AdminService) usernameFree(ctx context.Context, username string, self uint) error {
	other, err := s.Users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if other.ID != self {
		return fmt.Errorf("%w: username already exists", ErrConflict)
	}
	return nil
}

func (s *AdminService) ListProducts(ctx context.Context) ([]models.Product, error) {
	items, err := s.Products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

func (s *AdminService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// CreateProduct validates the form, stores the image and inserts the product.
// Nothing is written when validation fails.
func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput, up *Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_product")

	p, err := parseProduct(in)
	if err != nil {
		return nil, err
	}
	if up == nil || up.Filename == "" {
		return nil, fmt.Errorf("%w: an image file is required", ErrValidation)
	}
	if !storage.AllowedImage(up.Filename) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, storage.ErrInvalidImage)
	}

	url, err := s.Images.Save(up.Filename, up.Body)
	if errors.Is(err, storage.ErrInvalidImage) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		l.Error("create_product_failed", "status", 500, "reason", "cannot store image", "error", err)
		return nil, err
	}
	p.Image = url
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}

	if err := s.Products.Insert(ctx, p); err != nil {
		return nil, mapWriteErr("insert product", err)
	}

	s.mirror(ctx, p, events.ProductCreated)
	l.Info("product_created", "product_id", p.ID)
	return p, nil
}

// UpdateProduct overwrites the editable fields. The image is a plain URL here;
// an empty category keeps the current one.
func (s *AdminService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update_product", "product_id", id)

	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := parseProduct(in)
	if err != nil {
		return nil, err
	}

	current.Name = p.Name
	current.Description = p.Description
	current.Price = p.Price
	current.Sales = p.Sales
	current.Image = strings.TrimSpace(in.Image)
	if p.Category != "" {
		current.Category = p.Category
	}

	if err := s.Products.Update(ctx, current); err != nil {
		return nil, mapWriteErr("update product", err)
	}

	s.mirror(ctx, current, events.ProductUpdated)
	l.Info("product_updated")
	return current, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete_product", "product_id", id)

	if err := s.Products.Delete(ctx, id); err != nil {
		return mapWriteErr("delete product", err)
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_unindex_failed", "error", err)
		}
	}
	publish(ctx, s.Events, productKey(id), events.Event{"type": events.ProductDeleted, "productID": id})
	l.Info("product_deleted")
	return nil
}

func (s *AdminService) mirror(ctx context.Context, p *models.Product, eventType string) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, *p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, productKey(p.ID), events.Event{
		"type":      eventType,
		"productID": p.ID,
		"name":      p.Name,
		"price":     p.Price,
		"category":  p.Category,
	})
}

func parseProduct(in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price must be a number", ErrValidation)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	var sales uint64
	if raw := strings.TrimSpace(in.Sales); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sales must be a whole number", ErrValidation)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: sales cannot be negative", ErrValidation)
		}
		sales = uint64(n)
	}

	return &models.Product{
		Name:        name,
		Description: in.Description,
		Price:       price,
		Sales:       uint(sales),
		Category:    strings.TrimSpace(in.Category),
	}, nil
}

func mapWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func productKey(id uint) string {
	return "product-" + strconv.FormatUint(uint64(id), 10)
}
