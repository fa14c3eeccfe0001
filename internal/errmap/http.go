// Package errmap translates service errors into HTTP responses.
package errmap

import (
	"errors"
	"net/http"

	"account-service/internal/auth"
)

type HTTPError struct {
	StatusCode int                 `json:"-"`
	Code       string              `json:"code"`
	Message    string              `json:"error"`
	Fields     map[string][]string `json:"fields,omitempty"`
}

func (e HTTPError) Error() string {
	return e.Message
}

type httpMapping struct {
	err        error
	statusCode int
	code       string
	message    string
}

// First match wins. Messages are fixed so that nothing about the failed
// lookup (for example whether a username exists) reaches the client.
var httpMappings = []httpMapping{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "TOKEN_NOT_VALID", "token is invalid or expired"},
}

// ToHTTPError maps err to a status, code and client-safe message. Validation
// errors keep their field details; unknown errors become a bare 500.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}

	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return HTTPError{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_ARGUMENT",
			Message:    verr.Error(),
			Fields:     verr.ByField(),
		}
	}

	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: m.message}
		}
	}

	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}
