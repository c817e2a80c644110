package httpserver

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
)

type AdminHTTP struct {
	Svc  *service.AdminService
	View *View
}

func (h *AdminHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.dashboard")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return httpError(l, "dashboard_failed", err)
	}
	products, err := h.Svc.ListProducts(ctx)
	if err != nil {
		return httpError(l, "dashboard_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "admin_dashboard.html", map[string]any{
		"UserCount":    len(users),
		"ProductCount": len(products),
	})
}

func (h *AdminHTTP) Users(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.users")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return httpError(l, "list_users_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "admin_users.html", map[string]any{"Users": users})
}

func (h *AdminHTTP) UserAddForm(c echo.Context) error {
	return h.View.Render(c, http.StatusOK, "admin_user_form.html", map[string]any{
		"User":    nil,
		"Heading": "Add user",
		"Action":  "/admin/users/add",
	})
}

func userInput(c echo.Context) service.UserInput {
	return service.UserInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		IsAdmin:  c.FormValue("is_admin") != "",
	}
}

func (h *AdminHTTP) UserAdd(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_add")

	_, err := h.Svc.CreateUser(ctx, userInput(c))
	switch {
	case errors.Is(err, service.ErrConflict):
		return h.View.Redirect(c, flash.Danger, "Username already exists!", "/admin/users/add")
	case errors.Is(err, service.ErrValidation):
		return h.View.Redirect(c, flash.Danger, userMessage(err), "/admin/users/add")
	case err != nil:
		return httpError(l, "user_add_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "User created.", "/admin/users")
}

func (h *AdminHTTP) UserEditForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_edit_form")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.Svc.GetUser(ctx, id)
	if err != nil {
		return httpError(l, "user_edit_form_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "admin_user_form.html", map[string]any{
		"User":    u,
		"Heading": "Edit user",
		"Action":  fmt.Sprintf("/admin/users/edit/%d", u.ID),
	})
}

func (h *AdminHTTP) UserEdit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_edit")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	back := fmt.Sprintf("/admin/users/edit/%d", id)

	_, err = h.Svc.UpdateUser(ctx, id, userInput(c))
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpError(l, "user_edit_failed", err)
	case errors.Is(err, service.ErrConflict):
		return h.View.Redirect(c, flash.Danger, "Username already exists!", back)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPermission):
		return h.View.Redirect(c, flash.Danger, userMessage(err), back)
	case err != nil:
		return httpError(l, "user_edit_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "User updated.", "/admin/users")
}

func (h *AdminHTTP) UserDelete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.user_delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.Svc.DeleteUser(ctx, id)
	switch {
	case errors.Is(err, service.ErrPermission):
		return h.View.Redirect(c, flash.Danger, "Administrators cannot be deleted.", "/admin/users")
	case err != nil:
		return httpError(l, "user_delete_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "User deleted.", "/admin/users")
}

func (h *AdminHTTP) Products(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.products")

	products, err := h.Svc.ListProducts(ctx)
	if err != nil {
		return httpError(l, "list_products_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "admin_products.html", map[string]any{"Products": products})
}

func (h *AdminHTTP) ProductAddForm(c echo.Context) error {
	return h.View.Render(c, http.StatusOK, "admin_product_form.html", map[string]any{
		"Product": nil,
		"Heading": "Add product",
		"Action":  "/admin/products/add",
	})
}

func productInput(c echo.Context) service.ProductInput {
	return service.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
		Sales:       c.FormValue("sales"),
		Category:    c.FormValue("category"),
		Image:       c.FormValue("image"),
	}
}

func (h *AdminHTTP) ProductAdd(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.product_add")

	in := productInput(c)

	var up *service.Upload
	if fh, err := c.FormFile("image"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return httpError(l, "product_add_failed", err)
		}
		defer func(f multipart.File) { _ = f.Close() }(src)
		up = &service.Upload{Filename: fh.Filename, Body: src}
	}

	_, err := h.Svc.CreateProduct(ctx, in, up)
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn("product_add_failed", "status", 400, "error", err)
		return h.View.Redirect(c, flash.Danger, userMessage(err), "/admin/products/add")
	case err != nil:
		return httpError(l, "product_add_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "Product created.", "/admin/products")
}

func (h *AdminHTTP) ProductEditForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.product_edit_form")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return httpError(l, "product_edit_form_failed", err)
	}
	return h.View.Render(c, http.StatusOK, "admin_product_form.html", map[string]any{
		"Product": p,
		"Heading": "Edit product",
		"Action":  fmt.Sprintf("/admin/products/edit/%d", p.ID),
	})
}

func (h *AdminHTTP) ProductEdit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.product_edit")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	_, err = h.Svc.UpdateProduct(ctx, id, productInput(c))
	switch {
	case errors.Is(err, service.ErrValidation):
		return h.View.Redirect(c, flash.Danger, userMessage(err), fmt.Sprintf("/admin/products/edit/%d", id))
	case err != nil:
		return httpError(l, "product_edit_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "Product updated.", "/admin/products")
}

func (h *AdminHTTP) ProductDelete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.product_delete")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return httpError(l, "product_delete_failed", err)
	}
	return h.View.Redirect(c, flash.Success, "Product deleted.", "/admin/products")
}
