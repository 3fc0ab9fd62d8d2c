package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

// ownedHabit loads the :id habit for the current user, writing the error
// response itself when it fails.
func (s *Server) ownedHabit(c *gin.Context) (models.Habit, bool) {
	habit, err := s.store.GetHabit(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return models.Habit{}, false
	}
	return habit, true
}

func (s *Server) listHabitCompletions(c *gin.Context) {
	habit, ok := s.ownedHabit(c)
	if !ok {
		return
	}
	completions, err := s.store.GetCompletionsForHabit(c.Request.Context(), habit.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(completions, nil))
}

// setCompletion upserts the (habit, date) record. Repeating the same request
// leaves exactly one row.
func (s *Server) setCompletion(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date("date", date); err != nil {
		handleError(c, err)
		return
	}
	var req validation.SetCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, badRequest("invalid JSON body"))
		return
	}
	if err := validation.Struct(req); err != nil {
		handleError(c, err)
		return
	}

	habit, ok := s.ownedHabit(c)
	if !ok {
		return
	}
	if !habit.VisibleOn(date) {
		handleError(c, badRequest("date is before the habit's start date"))
		return
	}

	completion, err := s.store.SetCompletion(c.Request.Context(), models.Completion{
		HabitID:   habit.ID,
		Date:      date,
		Completed: *req.Completed,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	s.metrics.CompletionsSetTotal.WithLabelValues(strconv.FormatBool(completion.Completed)).Inc()
	c.JSON(http.StatusOK, Success(completion, nil))
}

func (s *Server) deleteCompletion(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date("date", date); err != nil {
		handleError(c, err)
		return
	}
	habit, ok := s.ownedHabit(c)
	if !ok {
		return
	}
	if err := s.store.DeleteCompletion(c.Request.Context(), habit.ID, date); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(Deleted{ID: habit.ID + "@" + date, Deleted: true}, nil))
}

func (s *Server) listCompletions(c *gin.Context) {
	completions, err := s.store.GetAllCompletionsForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(completions, map[string]any{"count": len(completions)}))
}

func (s *Server) completionsForDate(c *gin.Context) {
	date := c.Param("date")
	if err := validation.Date("date", date); err != nil {
		handleError(c, err)
		return
	}
	completions, err := s.store.GetUserCompletionsForDate(c.Request.Context(), currentUser(c).ID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(completions, nil))
}
