package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/internal/validate"
	"github.com/sheshield/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 7 * 24 * time.Hour

const minPasswordLen = 6

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		userService: userService,
		secret:      []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
	r.With(handler.RequireAuth).Put("/profile", handler.UpdateProfile)
}

// RequireAuth enforces JWT authentication and binds the verified
// identity into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth([]byte(jwtSecret))
}

// RequireRole rejects callers whose bound identity does not carry the
// given role. It must run after the auth middleware. A known caller
// with the wrong role gets 403, distinct from the 401 of a missing or
// invalid token.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !strings.EqualFold(identity.Role, role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := parseIdentity(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Register creates a new user account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "name", Value: &req.Name, Checks: []validate.Check{
			validate.Required("name is required"),
		}},
		{Field: "email", Value: &req.Email, Checks: []validate.Check{
			validate.Required("email is required"),
			validate.Email("valid email required"),
		}},
		{Field: "password", Value: &req.Password, Raw: true, Checks: []validate.Check{
			validate.MinLen(minPasswordLen, "password must be at least 6 characters"),
		}},
	})
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := issueToken(user, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "registration successful",
		Token:   token,
		User:    user,
	})
}

// Login verifies credentials and returns a JWT. The same message comes
// back whether the email is unknown or the password is wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "email", Value: &req.Email, Checks: []validate.Check{
			validate.Required("email is required"),
			validate.Email("valid email required"),
		}},
		{Field: "password", Value: &req.Password, Raw: true, Checks: []validate.Check{
			validate.Required("password is required"),
		}},
	})
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := issueToken(user, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "login successful",
		Token:   token,
		User:    user,
	})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile changes the caller's display name.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "name", Value: &req.Name, Checks: []validate.Check{
			validate.Required("name is required"),
		}},
	})
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	user, err := h.userService.UpdateName(r.Context(), identity.ID, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name string `json:"name"`
}

type AuthResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

// identityClaims is the JWT payload: the registered subject carries the
// user id, plus email and role so the role gate never needs a store
// round trip.
type identityClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func issueToken(user types.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseIdentity(tokenString string, secret []byte) (Identity, error) {
	claims := identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return Identity{}, errors.New("invalid subject")
	}

	return Identity{ID: id, Email: claims.Email, Role: claims.Role}, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
