package storefront

import (
	"net/http"

	"github.com/rhobart/minimart/internal/auth"
	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/session"
)

// AuthHandler handles registration, login, logout and the profile page.
type AuthHandler struct {
	users    domain.UserStore
	sessions *session.Manager
	renderer *handler.Renderer
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users domain.UserStore, sessions *session.Manager, renderer *handler.Renderer) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, renderer: renderer}
}

// registerForm is the public registration payload.
type registerForm struct {
	Username string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Address  string `validate:"required"`
	Contact  string `validate:"required"`
}

// ShowRegister handles GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderHTTP(w, "register", BaseTemplateData(r))
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	form := registerForm{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Address:  r.FormValue("address"),
		Contact:  r.FormValue("contact"),
	}
	if err := handler.Validate.Struct(form); err != nil {
		sess.Flash(session.SeverityError, handler.ValidationMessage(err))
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		sess.Flash(session.SeverityError, "Password should be at least 8 characters long.")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	// Public registration always creates a regular account. Admin roles are
	// granted through the admin user editor.
	_, err = h.users.Create(r.Context(), domain.UserInput{
		Username:     form.Username,
		Email:        form.Email,
		Address:      form.Address,
		Contact:      form.Contact,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/register")
		return
	}

	sess.Flash(session.SeveritySuccess, "Registration successful! Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin handles GET /login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderHTTP(w, "login", BaseTemplateData(r))
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	email := r.FormValue("email")
	password := r.FormValue("password")

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			err = domain.ErrInvalidCredentials
		}
		handler.FlashAndRedirect(w, r, sess, err, "/login")
		return
	}
	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrInvalidCredentials, "/login")
		return
	}

	sess.SetUser(user)
	if user.IsAdmin() {
		http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/shop", http.StatusSeeOther)
}

// Logout handles GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, currentSession(r))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// profileForm is the self-service profile payload. Password is optional.
type profileForm struct {
	Username string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Address  string `validate:"required"`
	Contact  string `validate:"required"`
	Password string `validate:"omitempty,min=8"`
}

// ShowProfile handles GET /profile
func (h *AuthHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	// Re-read so the page reflects the current wallet balance.
	user, err := h.users.FindByID(r.Context(), sess.User().ID)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}
	sess.SetUser(user)

	data := BaseTemplateData(r)
	data["User"] = user
	h.renderer.RenderHTTP(w, "profile", data)
}

// UpdateProfile handles POST /profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	user := sess.User()

	form := profileForm{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Address:  r.FormValue("address"),
		Contact:  r.FormValue("contact"),
		Password: r.FormValue("password"),
	}
	if err := handler.Validate.Struct(form); err != nil {
		sess.Flash(session.SeverityError, handler.ValidationMessage(err))
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	input := domain.UserInput{
		Username: form.Username,
		Email:    form.Email,
		Address:  form.Address,
		Contact:  form.Contact,
	}
	if form.Password != "" {
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			sess.Flash(session.SeverityError, "Password should be at least 8 characters long.")
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		input.PasswordHash = hash
	}

	if err := h.users.Update(r.Context(), user.ID, input, false); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/profile")
		return
	}

	refreshed, err := h.users.FindByID(r.Context(), user.ID)
	if err == nil {
		sess.SetUser(refreshed)
	}

	sess.Flash(session.SeveritySuccess, "Profile updated.")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
