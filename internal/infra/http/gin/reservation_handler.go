package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staymarket/internal/app/commands"
	ReservationApp "staymarket/internal/app/handlers/reservation"
	"staymarket/internal/app/queries"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createReservationRequest struct {
	QuoteID        string `json:"quote_id"`
	GuestEmail     string `json:"guest_email"`
	GuestFullName  string `json:"guest_full_name"`
	GuestPhone     string `json:"guest_phone"`
	SourceChannel  string `json:"source_channel"`
	SpecialRequest string `json:"special_request"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ReservationApp.CreateReservationCommand{
		CommandID:      generateCommandID(),
		IdemKey:        c.GetHeader("Idempotency-Key"),
		QuoteID:        req.QuoteID,
		GuestEmail:     req.GuestEmail,
		GuestFullName:  req.GuestFullName,
		GuestPhone:     req.GuestPhone,
		SourceChannel:  req.SourceChannel,
		SpecialRequest: req.SpecialRequest,
	}
	result, err := commands.Dispatch[ReservationApp.CreateReservationCommand, *ReservationApp.CreateReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	view, err := queries.Ask[ReservationApp.GetReservationQuery, ReservationApp.ReservationView](c.Request.Context(), h.Queries, ReservationApp.GetReservationQuery{ReservationID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h ReservationHandler) Confirm(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := ReservationApp.ConfirmReservationCommand{
		ReservationID: c.Param("id"),
		IdemKey:       c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[ReservationApp.ConfirmReservationCommand, *ReservationApp.ConfirmReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelReservationRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ReservationApp.CancelReservationCommand{
		ReservationID: c.Param("id"),
		Reason:        req.Reason,
		IdemKey:       c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[ReservationApp.CancelReservationCommand, *ReservationApp.CancelReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Complete(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := ReservationApp.CompleteReservationCommand{ReservationID: c.Param("id")}
	result, err := commands.Dispatch[ReservationApp.CompleteReservationCommand, *ReservationApp.CompleteReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReservationHTTP = ReservationHandler{}
