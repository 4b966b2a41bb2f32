package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"worldstats/internal/models"
)

type Handler struct {
	data atomic.Pointer[models.DashboardData]
}

func NewHandler(data *models.DashboardData) *Handler {
	h := &Handler{}
	h.SetData(data)
	return h
}

// SetData swaps in a freshly aggregated dataset.
func (h *Handler) SetData(data *models.DashboardData) {
	h.data.Store(data)
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("", h.requireData)
	api.GET("/columns", h.GetColumns)
	api.GET("/getdata", h.GetData)
	api.GET("/scatter_data", h.GetScatter)
	api.GET("/pie-chart", h.GetPie)
	api.GET("/pcp", h.GetPCP)
	api.GET("/country-info", h.GetCountryInfo)
}

// requireData answers 503 until the background load has finished.
func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.data.Load() == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Data is still loading")
		}
		return next(c)
	}
}

// --- HANDLERS ---
func columnParam(c echo.Context) string {
	if col := c.QueryParam("column"); col != "" {
		return col
	}
	return models.DefaultColumn
}

// returns indicator column names
func (h *Handler) GetColumns(c echo.Context) error {
	return writeJSON(c, h.data.Load().Columns)
}

// returns one row per country for the requested column
func (h *Handler) GetData(c echo.Context) error {
	data := h.data.Load()
	col := columnParam(c)
	if !data.HasColumn(col) {
		return echo.NewHTTPError(http.StatusNotFound, "Column not found")
	}
	return writeJSON(c, data.Rows[col])
}

// returns score/value/name arrays for the requested column
func (h *Handler) GetScatter(c echo.Context) error {
	data := h.data.Load()
	col := columnParam(c)
	if !data.HasColumn(col) {
		return echo.NewHTTPError(http.StatusNotFound, "Column not found")
	}
	return writeJSON(c, data.Scatter[col])
}

// returns the mean score per region
func (h *Handler) GetPie(c echo.Context) error {
	return writeJSON(c, h.data.Load().Pie)
}

// returns dictionary-encoded rows plus decode tables
func (h *Handler) GetPCP(c echo.Context) error {
	return writeJSON(c, h.data.Load().PCP)
}

// returns full records for a comma-separated country list
func (h *Handler) GetCountryInfo(c echo.Context) error {
	data := h.data.Load()

	var names, invalid []string
	for _, s := range strings.Split(c.QueryParam("countries"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}

	result := make(map[string]map[string]any, len(names))
	for _, name := range names {
		info, ok := data.Countries[models.FoldName(name)]
		if !ok {
			invalid = append(invalid, strings.ToLower(name))
			continue
		}
		result[info.Name] = info.Fields
	}
	if len(invalid) > 0 {
		msg := fmt.Sprintf("Invalid countries: %s", strings.Join(invalid, ", "))
		c.Logger().Error(msg)
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	return writeJSON(c, result)
}
