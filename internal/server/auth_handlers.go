package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/auth"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	session, err := s.accounts.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	if session.User.Email != "" {
		// the account and its customer record share the email
		if _, err := s.linker.EnsureCustomer(c.Request.Context(), auth.IdentityFromUser(session.User)); err != nil {
			s.logger.Warn("failed to link customer at registration",
				zap.Int64("user_id", session.User.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":    session.Token,
		"user_id":  session.User.ID,
		"username": session.User.Username,
		"email":    session.User.Email,
	})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	session, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    session.Token,
		"user_id":  session.User.ID,
		"username": session.User.Username,
		"is_staff": session.User.IsStaff,
	})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.accounts.Logout(c.Request.Context(), identity(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
