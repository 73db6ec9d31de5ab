package api

import (
	"errors"
	"net/http"
	"strconv"

	"voice-campaign/internal/database"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	Calls *database.CallStore
}

func NewCallHandler(calls *database.CallStore) *CallHandler {
	return &CallHandler{Calls: calls}
}

func (h *CallHandler) GetCalls(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.Calls.List(c.Request.Context(), database.CallFilter{
		Outcome: c.Query("outcome"),
		Phone:   c.Query("phone"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records, "total": total})
}

func (h *CallHandler) GetCall(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call id"})
		return
	}
	rec, err := h.Calls.Get(c.Request.Context(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *CallHandler) GetStats(c *gin.Context) {
	counts, err := h.Calls.OutcomeCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "outcomes": counts})
}
