package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/refdata"
	"github.com/huangang/testdesk/pkg/response"
)

// ReferenceHandler serves the static country and timezone tables used by
// profile forms.
type ReferenceHandler struct {
	now func() time.Time
}

func NewReferenceHandler() *ReferenceHandler {
	return &ReferenceHandler{now: time.Now}
}

// GET /api/reference/countries
func (h *ReferenceHandler) Countries(c *gin.Context) {
	response.Success(c, refdata.Countries())
}

// GET /api/reference/timezones?country=
func (h *ReferenceHandler) Timezones(c *gin.Context) {
	zones, err := refdata.Timezones(c.Query("country"), h.now())
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, zones)
}
