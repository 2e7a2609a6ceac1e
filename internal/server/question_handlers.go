package server

import (
	"stackit/internal/models"
	"stackit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetQuestions handles GET /api/quesans/questions
func (s *Server) GetQuestions(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	questions, err := s.questionService.List(c.UserContext(), service.ListQuestionsInput{
		Tag:    c.Query("tag"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(questions)
}

// GetQuestion handles GET /api/quesans/questions/:id
func (s *Server) GetQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	question, err := s.questionService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(question)
}

// GetAnswers handles GET /api/quesans/answers/:id where :id is the question.
func (s *Server) GetAnswers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	answers, err := s.answerService.ListByQuestion(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(answers)
}

// CreateQuestion handles POST /api/quesans/question
func (s *Server) CreateQuestion(c *fiber.Ctx) error {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	question, err := s.questionService.Create(c.UserContext(), service.CreateQuestionInput{
		AuthorID:    callerID(c),
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(question)
}

// UpdateQuestion handles POST /api/quesans/question/:id
func (s *Server) UpdateQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	question, err := s.questionService.Update(c.UserContext(), service.UpdateQuestionInput{
		ActorID:     callerID(c),
		QuestionID:  id,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(question)
}

// CreateAnswer handles POST /api/quesans/answer
func (s *Server) CreateAnswer(c *fiber.Ctx) error {
	var req struct {
		QuestionID uint   `json:"question_id"`
		Content    string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.QuestionID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("question_id is required"))
	}

	answer, err := s.answerService.Create(c.UserContext(), service.CreateAnswerInput{
		AuthorID:   callerID(c),
		QuestionID: req.QuestionID,
		Content:    req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(answer)
}

// UpdateAnswer handles POST /api/quesans/answer/:id
func (s *Server) UpdateAnswer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	answer, err := s.answerService.Update(c.UserContext(), service.UpdateAnswerInput{
		ActorID:  callerID(c),
		AnswerID: id,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(answer)
}

// Vote returns the handler for PUT /api/quesans/{questions|answers}/:id/{upvote|downvote}.
func (s *Server) Vote(kind models.TargetKind, direction models.Direction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		result, err := s.voteService.ApplyVote(c.UserContext(), service.ApplyVoteInput{
			ActorID:   callerID(c),
			Kind:      kind,
			TargetID:  id,
			Direction: direction,
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(result)
	}
}

// AcceptAnswer handles PUT /api/quesans/questions/:id/accept/:answerId
func (s *Server) AcceptAnswer(c *fiber.Ctx) error {
	questionID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	answerID, err := parseID(c, "answerId")
	if err != nil {
		return nil
	}

	question, err := s.questionService.AcceptAnswer(c.UserContext(), callerID(c), questionID, answerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(question)
}
