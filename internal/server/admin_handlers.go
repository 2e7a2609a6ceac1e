package server

import (
	"stackit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/admin/users
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, total, err := s.adminService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

// ToggleUserBan handles PUT /api/admin/users/:userId/ban
func (s *Server) ToggleUserBan(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	user, err := s.adminService.ToggleBan(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/admin/users/:userId
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteUser(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// GetAdminQuestions handles GET /api/admin/questions
func (s *Server) GetAdminQuestions(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	questions, err := s.adminService.ListQuestions(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(questions)
}

// DeleteQuestion handles DELETE /api/admin/questions/:questionId
func (s *Server) DeleteQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "questionId")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteQuestion(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Question deleted successfully"})
}

// DeleteAnswer handles DELETE /api/admin/answers/:answerId
func (s *Server) DeleteAnswer(c *fiber.Ctx) error {
	id, err := parseID(c, "answerId")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteAnswer(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Answer deleted successfully"})
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(callerID(c)),
	})
}
