package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/auth"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/logging"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
)

const msgBadCredentials = "incorrect username or password"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// AuthHandler provides registration and token endpoints.
type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	authService *services.AuthService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAuthHandler(userService, authService)

	r.Post("/", handler.Register)
	r.Post("/token", handler.Token)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireAuth enforces bearer authentication and injects the caller's
// identity into the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeUnauthorized(w, "unauthorized")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				logging.FromRequest(r).WithError(err).Debug("token rejected")
				writeUnauthorized(w, "unauthorized")
				return
			}

			ctx := withIdentity(r.Context(), Identity{
				UserID:   claims.UserID,
				Username: claims.Username(),
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account.
//
//	@Summary		Register a user
//	@Description	Creates an active account. The role defaults to "user".
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest			true	"Account details"
//	@Success		201		{object}	types.User
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/ [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), services.Registration{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		logging.FromRequest(r).WithError(err).Error("register user")
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Token exchanges credentials for an access token. Form and JSON bodies are
// both accepted.
//
//	@Summary		Issue an access token
//	@Tags			auth
//	@Accept			x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			username	formData	string	true	"Username"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	TokenResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	req, err := readLoginRequest(w, r)
	if err != nil || req.Username == "" || req.Password == "" {
		writeUnauthorized(w, msgBadCredentials)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeUnauthorized(w, msgBadCredentials)
			return
		}
		logging.FromRequest(r).WithError(err).Error("login")
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the current authenticated user.
//
//	@Summary	Current user
//	@Tags		auth
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	types.User
//	@Failure	401	{object}	ErrorResponse
//	@Router		/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnauthorized(w, "unauthorized")
			return
		}
		logging.FromRequest(r).WithError(err).Error("load user")
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func readLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &req); err != nil {
			return LoginRequest{}, err
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		return LoginRequest{}, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
