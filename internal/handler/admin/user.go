package admin

import (
	"net/http"
	"strconv"

	"github.com/rhobart/minimart/internal/auth"
	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/session"
)

var errAdminEditForbidden = &domain.Error{Code: domain.EFORBIDDEN, Message: "Admin accounts can only be edited by their owner"}

// UserHandler manages accounts from the admin surface.
type UserHandler struct {
	users    domain.UserStore
	renderer *handler.Renderer
}

// NewUserHandler creates a new admin user handler.
func NewUserHandler(users domain.UserStore, renderer *handler.Renderer) *UserHandler {
	return &UserHandler{users: users, renderer: renderer}
}

// List handles GET /admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	users, err := h.users.List(r.Context())
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/users")
		return
	}

	data := BaseTemplateData(r)
	data["Users"] = users
	h.renderer.RenderHTTP(w, "admin/users", data)
}

// Edit handles GET /admin/users/{id}
func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	target, err := h.findEditable(r, sess)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/users")
		return
	}

	data := BaseTemplateData(r)
	data["Target"] = target
	h.renderer.RenderHTTP(w, "admin/user-edit", data)
}

// userForm is the admin user edit payload. Password is optional.
type userForm struct {
	Username string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Address  string
	Contact  string
	Role     string `validate:"required,oneof=user admin"`
	Password string `validate:"omitempty,min=8"`
}

// Update handles POST /admin/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	target, err := h.findEditable(r, sess)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/users")
		return
	}

	form := userForm{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Address:  r.FormValue("address"),
		Contact:  r.FormValue("contact"),
		Role:     r.FormValue("role"),
		Password: r.FormValue("password"),
	}
	if err := handler.Validate.Struct(form); err != nil {
		sess.Flash(session.SeverityError, handler.ValidationMessage(err))
		http.Redirect(w, r, "/admin/users/"+strconv.FormatInt(target.ID, 10), http.StatusSeeOther)
		return
	}

	input := domain.UserInput{
		Username: form.Username,
		Email:    form.Email,
		Address:  form.Address,
		Contact:  form.Contact,
		Role:     domain.ParseRole(form.Role),
	}
	if form.Password != "" {
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			sess.Flash(session.SeverityError, "Password should be at least 8 characters long.")
			http.Redirect(w, r, "/admin/users/"+strconv.FormatInt(target.ID, 10), http.StatusSeeOther)
			return
		}
		input.PasswordHash = hash
	}

	if err := h.users.Update(r.Context(), target.ID, input, true); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/users")
		return
	}
	sess.Flash(session.SeveritySuccess, "User updated.")
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// findEditable resolves the target user and enforces the rule that an admin
// may edit regular accounts and their own, but never another admin.
func (h *UserHandler) findEditable(r *http.Request, sess *session.Session) (*domain.User, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	target, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() && target.ID != sess.User().ID {
		return nil, errAdminEditForbidden
	}
	return target, nil
}
