package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/server/models"
	"github.com/dmitrijs2005/zkvault/internal/server/services"
)

const maxBodySize = 1 << 16

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type saltRequest struct {
	Salt string `json:"salt" validate:"required,printascii,max=256"`
}

// profileResponse mirrors the client's models.Profile.
type profileResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Salt        string `json:"salt,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newProfile(u *models.User, token string) profileResponse {
	return profileResponse{UserID: u.ID, Username: u.UserName, Salt: u.Salt, AccessToken: token}
}

func (s *HTTPServer) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "Registered", "user_id", sess.User.ID)
	writeJSON(w, http.StatusCreated, newProfile(sess.User, sess.AccessToken))
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfile(sess.User, sess.AccessToken))
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Me(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfile(user, ""))
}

func (s *HTTPServer) putSalt(w http.ResponseWriter, r *http.Request) {
	var req saltRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.users.PutSalt(r.Context(), userIDFrom(r.Context()), req.Salt); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// compile-time check that the concrete service fits.
var _ UserService = (*services.UserService)(nil)
