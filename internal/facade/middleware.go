package facade

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			event := logger.Debug()
			if res.Status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", req.Method).
				Str("path", c.Path()).
				Int("status", res.Status).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Dur("took", time.Since(start)).
				Msg("facade request")
			return nil
		}
	}
}

// requireSession is a presentation guard only; the backend enforces access.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.session.Session().IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, redirectBody{Error: "login required", Redirect: "/login"})
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.session.Session().IsAdmin() {
			return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden"})
		}
		return next(c)
	}
}
