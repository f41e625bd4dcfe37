package helpers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/artifact"
	"github.com/trezcool/michezo/core/plan"
	"github.com/trezcool/michezo/core/run"
	"github.com/trezcool/michezo/core/session"
)

// API error codes
const (
	codeInvalidID       = "INVALID_ID"
	codeUnauthorized    = "UNAUTHORIZED"
	codeNotFound        = "NOT_FOUND"
	codeValidationError = "VALIDATION_ERROR"
	codeServerError     = "SERVER_ERROR"
)

var (
	ErrUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "participant not authenticated")
	ErrInvalidID    = errors.New("invalid id")
)

type (
	errorBody struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	}

	errorEnvelope struct {
		Error errorBody `json:"error"`
	}
)

func newErrorEnvelope(code, message string, fields ...map[string]string) errorEnvelope {
	env := errorEnvelope{Error: errorBody{Code: code, Message: message}}
	if len(fields) > 0 {
		env.Error.Fields = fields[0]
	}
	return env
}

// NewAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps our
// error taxonomy onto the {error: {code, message}} envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func NewAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var env errorEnvelope

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				env = newErrorEnvelope(codeUnauthorized, fmtMessage(origErr.Message))
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			env = newErrorEnvelope(httpCode(origErr.Code), fmtMessage(origErr.Message))
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			env = newErrorEnvelope(codeValidationError, "invalid input", fldErrs)
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				env = newErrorEnvelope(codeValidationError, origErr.Error(), fldErrs)
			} else {
				env = newErrorEnvelope(codeValidationError, origErr.Error())
			}
		default: // sentinel lookups, then any other error is a server error
			switch errors.Cause(err) {
			case ErrInvalidID:
				code = http.StatusBadRequest
				env = newErrorEnvelope(codeInvalidID, ErrInvalidID.Error())
			case plan.ErrNotFound, session.ErrNotFound, artifact.ErrNotFound, run.ErrNotFound:
				code = http.StatusNotFound
				env = newErrorEnvelope(codeNotFound, errors.Cause(err).Error())
			default:
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				env = newErrorEnvelope(codeServerError, msg)

				args := []interface{}{errors.Wrap(err, msg)}
				if p, pErr := GetContextParticipant(ctx); pErr == nil {
					args = append(args, p)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			env.Error.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, env)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusBadRequest:
		return codeValidationError
	default:
		return codeServerError
	}
}

func fmtMessage(m interface{}) string {
	if s, ok := m.(string); ok {
		return s
	}
	return http.StatusText(http.StatusInternalServerError)
}
