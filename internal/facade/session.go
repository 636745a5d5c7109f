package facade

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"stayease/internal/model"
	"stayease/internal/store"
)

type sessionView struct {
	Authenticated bool       `json:"authenticated"`
	Role          model.Role `json:"role,omitempty"`
	UserID        int64      `json:"userId,omitempty"`
	Loading       bool       `json:"loading"`
	Error         string     `json:"error,omitempty"`
}

func viewSession(st store.SessionState) sessionView {
	v := sessionView{
		Authenticated: st.Session.IsAuthenticated(),
		Role:          st.Session.Role,
		UserID:        st.Session.UserID,
		Loading:       st.Loading,
	}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}
	return v
}

func (s *Server) getSession(c echo.Context) error {
	return c.JSON(http.StatusOK, viewSession(s.session.State()))
}

func (s *Server) login(c echo.Context) error {
	var creds model.Credentials
	if err := c.Bind(&creds); err != nil {
		return badRequest(c, "invalid login payload")
	}
	if creds.Email == "" || creds.Password == "" {
		return badRequest(c, "email and password are required")
	}
	if _, err := s.session.Login(c.Request().Context(), creds); err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, viewSession(s.session.State()))
}

func (s *Server) register(c echo.Context) error {
	var profile model.Profile
	if err := c.Bind(&profile); err != nil {
		return badRequest(c, "invalid registration payload")
	}
	if profile.Email == "" || profile.Password == "" || profile.Name == "" {
		return badRequest(c, "name, email and password are required")
	}
	if profile.Role == "" {
		profile.Role = model.RoleCustomer
	}
	if _, err := s.session.RegisterAndLogin(c.Request().Context(), profile); err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusCreated, viewSession(s.session.State()))
}

func (s *Server) logout(c echo.Context) error {
	s.session.Logout(c.Request().Context())
	s.bookings.Reset()
	return c.NoContent(http.StatusNoContent)
}
