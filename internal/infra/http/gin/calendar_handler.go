package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staymarket/internal/app/commands"
	AvailabilityApp "staymarket/internal/app/handlers/availability"
	CalendarApp "staymarket/internal/app/handlers/calendar"
	"staymarket/internal/app/queries"
)

type CalendarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h CalendarHandler) Calendar(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	from, err := time.Parse(time.DateOnly, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(time.DateOnly, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}
	q := CalendarApp.GetCalendarQuery{PropertyID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[CalendarApp.GetCalendarQuery, CalendarApp.GetCalendarResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) CheckAvailability(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	checkIn, err := time.Parse(time.DateOnly, c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be YYYY-MM-DD"})
		return
	}
	checkOut, err := time.Parse(time.DateOnly, c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be YYYY-MM-DD"})
		return
	}
	q := AvailabilityApp.CheckAvailabilityQuery{
		PropertyID: c.Param("id"),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     queryInt(c, "adults", 1),
		Children:   queryInt(c, "children", 0),
	}
	result, err := queries.Ask[AvailabilityApp.CheckAvailabilityQuery, AvailabilityApp.CheckAvailabilityResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setOverrideRequest struct {
	Date              time.Time `json:"date"`
	PriceOverride     int64     `json:"price_override"`
	MinNightsOverride int       `json:"min_nights_override"`
}

func (h CalendarHandler) SetOverride(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req setOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := CalendarApp.SetOverrideCommand{
		PropertyID:        c.Param("id"),
		Date:              req.Date,
		PriceOverride:     req.PriceOverride,
		MinNightsOverride: req.MinNightsOverride,
	}
	result, err := commands.Dispatch[CalendarApp.SetOverrideCommand, *CalendarApp.SetOverrideResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ CalendarHTTP = CalendarHandler{}
