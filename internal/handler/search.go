package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gazetteer-api/internal/models"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 10

// SearchHandler handles gazetteer search requests
type SearchHandler struct {
	service SearchService
}

// Service interface for dependency injection
type SearchService interface {
	Search(ctx context.Context, query string, typ models.PlaceType, limit int, near *models.Point) ([]models.Place, error)
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search handles GET /api/search requests.
//
// @Summary      Search the gazetteer
// @Description  Ranked text search over cities and countries, optionally re-ranked by distance to a reference point.
// @Tags         search
// @Produce      json
// @Param        q      query  string  false  "free-text place name; empty matches nothing"
// @Param        type   query  string  false  "cities | countries | all"  default(all)
// @Param        limit  query  int     false  "maximum number of results"  default(10)
// @Param        lat    query  number  false  "reference latitude (requires lon)"
// @Param        lon    query  number  false  "reference longitude (requires lat)"
// @Param        token  query  string  true   "API token"
// @Success      200  {array}   models.Place
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")

	typ, ok := parsePlaceType(c.DefaultQuery("type", "all"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of cities, countries, all"})
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit format"})
			return
		}
		limit = n
	}

	near, err := parseNear(c.Query("lat"), c.Query("lon"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	places, err := h.service.Search(c.Request.Context(), query, typ, limit, near)
	if err != nil {
		respondError(c, err)
		return
	}
	if places == nil {
		places = []models.Place{}
	}
	c.JSON(http.StatusOK, places)
}

// parsePlaceType maps the public type parameter onto the model variants.
func parsePlaceType(raw string) (models.PlaceType, bool) {
	switch raw {
	case "cities":
		return models.TypeCity, true
	case "countries":
		return models.TypeCountry, true
	case "all", "":
		return models.TypeAny, true
	default:
		return "", false
	}
}

// parseNear turns the optional lat/lon pair into a point. Supplying only
// one half of the pair is an input error.
func parseNear(latStr, lonStr string) (*models.Point, error) {
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("lat and lon must be supplied together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid latitude format")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, errors.New("invalid longitude format")
	}
	return &models.Point{Lat: lat, Lon: lon}, nil
}

// respondError maps the error taxonomy onto HTTP statuses: bad input is
// the caller's to fix, timeouts are retryable, the rest stays opaque.
func respondError(c *gin.Context, err error) {
	var qe *models.QueryError
	if errors.As(err, &qe) {
		c.JSON(http.StatusBadRequest, gin.H{"error": qe.Reason})
		return
	}
	var te *models.TimeoutError
	if errors.As(err, &te) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "store operation timed out"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
