package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staymarket/internal/app/commands"
	QuoteApp "staymarket/internal/app/handlers/quote"
)

type QuoteHandler struct {
	Commands commands.Bus
}

type generateQuoteRequest struct {
	PropertyID string    `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Adults     int       `json:"adults"`
	Children   int       `json:"children"`
	PromoCode  string    `json:"promo_code"`
}

func (h QuoteHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req generateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := QuoteApp.GenerateQuoteCommand{
		CommandID:  generateCommandID(),
		PropertyID: req.PropertyID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Adults:     req.Adults,
		Children:   req.Children,
		PromoCode:  req.PromoCode,
	}
	result, err := commands.Dispatch[QuoteApp.GenerateQuoteCommand, *QuoteApp.GenerateQuoteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ QuoteHTTP = QuoteHandler{}
