package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	SearchApp "staymarket/internal/app/handlers/search"
	"staymarket/internal/app/queries"
)

type SearchHandler struct {
	Queries queries.Bus
}

func (h SearchHandler) Search(c *gin.Context) {
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
	adults := queryInt(c, "adults", 1)
	children := queryInt(c, "children", 0)
	limit := queryInt(c, "limit", 0)

	q := SearchApp.SearchStaysQuery{
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Adults:    adults,
		Children:  children,
		PromoCode: c.Query("promo_code"),
		Limit:     limit,
	}
	result, err := queries.Ask[SearchApp.SearchStaysQuery, SearchApp.SearchStaysResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

var _ SearchHTTP = SearchHandler{}
