package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
	"github.com/AnshRaj112/moodjournal-backend/pkg/utils"
)

// SigninRequest accepts both the OAuth2 password form field names and a JSON body.
type SigninRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a patient or therapist account.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req models.UserCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := utils.ValidateEmail(req.Email); err != nil {
		writeServiceError(w, err, "signup")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		writeServiceError(w, err, "signup")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	exists, err := services.EmailExists(ctx, req.Email)
	if err != nil {
		writeServiceError(w, err, "signup email check")
		return
	}
	if exists {
		writeServiceError(w, services.ErrEmailTaken, "signup")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, err, "hash password")
		return
	}

	u, err := services.CreateUser(ctx, req, &hash)
	if err != nil {
		writeServiceError(w, err, "create user")
		return
	}
	logger.L().Info("user signed up", "user_id", u.ID, "role", string(u.Role))
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "User created successfully"})
}

// Signin exchanges credentials for a bearer token.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}
	email := req.Username
	if email == "" {
		email = req.Email
	}
	if email == "" || req.Password == "" {
		writeServiceError(w, services.ErrInvalidCredentials, "signin")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	u, err := services.AuthenticateUser(ctx, email, req.Password)
	if err != nil {
		writeServiceError(w, err, "signin")
		return
	}
	issueToken(w, u)
}

// SigninGoogle verifies a Google access token and signs the user in,
// creating a patient account on first use.
func SigninGoogle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Invalid Google Token")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	u, err := services.SignInWithGoogle(ctx, token)
	if err != nil {
		writeServiceError(w, err, "google signin")
		return
	}
	issueToken(w, u)
}

func issueToken(w http.ResponseWriter, u *models.User) {
	tok, err := services.IssueAccessToken(u)
	if err != nil {
		writeServiceError(w, err, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// CheckEmail answers {"detail": "True"} when the address is registered.
func CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	exists, err := services.EmailExists(ctx, email)
	if err != nil {
		writeServiceError(w, err, "check email")
		return
	}
	detail := "False"
	if exists {
		detail = "True"
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: detail})
}
