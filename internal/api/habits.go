package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/validation"
)

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, Success(currentUser(c), nil))
}

func (s *Server) listHabits(c *gin.Context) {
	habits, err := s.store.GetHabitsForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(habits, map[string]any{"count": len(habits)}))
}

func (s *Server) createHabit(c *gin.Context) {
	var req validation.CreateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, badRequest("invalid JSON body"))
		return
	}
	if err := validation.Struct(req); err != nil {
		handleError(c, err)
		return
	}

	habit, err := s.store.CreateHabit(c.Request.Context(), req.Habit(currentUser(c).ID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Success(habit, nil))
}

func (s *Server) getHabit(c *gin.Context) {
	habit, err := s.store.GetHabit(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(habit, nil))
}

func (s *Server) updateHabit(c *gin.Context) {
	var req validation.UpdateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, badRequest("invalid JSON body"))
		return
	}
	if err := validation.Struct(req); err != nil {
		handleError(c, err)
		return
	}

	ctx := c.Request.Context()
	habit, err := s.store.GetHabit(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	updated, err := s.store.UpdateHabit(ctx, req.Apply(habit))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(updated, nil))
}

func (s *Server) deleteHabit(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeleteHabit(c.Request.Context(), currentUser(c).ID, id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(Deleted{ID: id, Deleted: true}, nil))
}
