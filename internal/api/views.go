package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

func (s *Server) habitsWithCompletions(c *gin.Context) {
	items, err := storage.HabitsWithCompletions(c.Request.Context(), s.store, currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(items, nil))
}

// listStreaks recomputes every habit's streaks on each call. Malformed dates
// are skipped, never fatal. The optional today query names the caller's
// calendar day, since completion dates are the client's local dates.
func (s *Server) listStreaks(c *gin.Context) {
	calc := s.streaks
	if today := c.Query("today"); today != "" {
		if err := validation.Date("today", today); err != nil {
			handleError(c, err)
			return
		}
		day, _ := time.Parse(constants.DateFormat, today)
		calc = calc.At(day)
	}

	items, err := storage.HabitsWithCompletions(c.Request.Context(), s.store, currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	withStreaks, err := calc.ForHabits(items)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(withStreaks, map[string]any{"mode": calc.Mode().String()}))
}

func (s *Server) importHabits(c *gin.Context) {
	var req validation.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, badRequest("invalid JSON body"))
		return
	}
	if err := validation.Struct(req); err != nil {
		handleError(c, err)
		return
	}

	imported, err := storage.ImportHabits(c.Request.Context(), s.store, currentUser(c).ID, req.Habits)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Success(imported, map[string]any{"count": len(imported)}))
}

func (s *Server) exportHabits(c *gin.Context) {
	habits, err := storage.ExportHabits(c.Request.Context(), s.store, currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, Success(habits, nil))
}
