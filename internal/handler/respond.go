package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/middleware"
	"github.com/sirupsen/logrus"
)

// errorInfo is the HTTP rendering of an error kind.
type errorInfo struct {
	status  int
	message string // i18n key
	oauth   string // RFC 6749/6750 error code, token errors only
	bearer  bool   // add WWW-Authenticate: Bearer
}

var errMalformed = &common.ValidationError{Message: i18n.MsgBadRequest}

// classify is the single translation table from error kinds to responses.
func classify(err error) errorInfo {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorInfo{status: http.StatusBadRequest, message: verr.Message}
	case errors.Is(err, common.ErrEmptyBody):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgEmptyBody}
	case errors.Is(err, common.ErrForbidden):
		return errorInfo{status: http.StatusForbidden, message: i18n.MsgForbidden}
	case errors.Is(err, common.ErrNotFound):
		return errorInfo{status: http.StatusNotFound, message: i18n.MsgNotFound}
	case errors.Is(err, common.ErrDuplicateUsername):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgUsernameTaken}
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrWrongPassword):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgInvalidLogin}
	case errors.Is(err, common.ErrInvalidGrant):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgBadCredentials, oauth: "invalid_grant"}
	case errors.Is(err, common.ErrUnsupportedGrantType):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgGrantTypeRequired, oauth: "unsupported_grant_type"}
	case errors.Is(err, common.ErrTokenMissing):
		return errorInfo{status: http.StatusUnauthorized, message: i18n.MsgTokenMissing, bearer: true}
	case errors.Is(err, common.ErrTokenInvalid):
		return errorInfo{status: http.StatusUnauthorized, message: i18n.MsgTokenInvalid, oauth: "invalid_token", bearer: true}
	case errors.Is(err, common.ErrTokenTypeInvalid):
		return errorInfo{status: http.StatusBadRequest, message: i18n.MsgTokenTypeInvalid, oauth: "invalid_request"}
	case errors.Is(err, common.ErrUnknownLocale):
		return errorInfo{status: http.StatusNotFound, message: i18n.MsgInvalidLocale}
	case errors.Is(err, common.ErrLoginRequired):
		return errorInfo{status: http.StatusUnauthorized, message: i18n.MsgLoginRequired}
	}
	return errorInfo{status: http.StatusInternalServerError, message: i18n.MsgInternalError}
}

// logFailure records infrastructure errors; client errors are not logged here.
func logFailure(log *logrus.Logger, r *http.Request, info errorInfo, err error) {
	if info.status < http.StatusInternalServerError {
		return
	}
	log.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	}).WithError(err).Error("Request failed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// messageBody is the {message} shape used by the HTML surface.
type messageBody struct {
	Message string `json:"message"`
	HTML    string `json:"html,omitempty"`
	Count   *int64 `json:"count,omitempty"`
}

// apiStatus is the {code, message} shape of API errors and acknowledgements.
type apiStatus struct {
	Code             int    `json:"code"`
	Message          string `json:"message"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func newAPIStatus(locale string, info errorInfo) apiStatus {
	msg := i18n.T(locale, info.message)
	body := apiStatus{Code: info.status, Message: msg}
	if info.oauth != "" {
		body.Error = info.oauth
		body.ErrorDescription = msg
	}
	return body
}

func hasJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// prefersJSON mirrors the usual "accepts JSON but not HTML" test.
func prefersJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errMalformed
	}
	return nil
}

type bodyRequest struct {
	Body *string `json:"body"`
}

// itemBody extracts {"body": "..."}; a missing body reads as empty.
func itemBody(r *http.Request) (string, error) {
	var req bodyRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	if req.Body == nil {
		return "", nil
	}
	return *req.Body, nil
}
