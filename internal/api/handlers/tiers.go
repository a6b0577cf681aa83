package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agile-live/internal/api/models"
	"agile-live/internal/format"
)

// ListTiers handles GET /api/v1/tiers. Clients use it as the colour legend
// for the tier field carried by every price.
func ListTiers(c *gin.Context) {
	low, medium := format.LowBelow, format.MediumBelow
	tiers := []models.TierInfo{
		{
			Name:        format.BelowZero,
			Description: "Zero or negative price; you are paid to use electricity.",
			AtMost:      ptr(0.0),
		},
		{
			Name:        format.Low,
			Description: "Cheap slot, below " + format.FormatPrice(low) + ".",
			Below:       &low,
		},
		{
			Name:        format.Medium,
			Description: "Typical daytime price, below " + format.FormatPrice(medium) + ".",
			Below:       &medium,
		},
		{
			Name:        format.High,
			Description: "Expensive slot, " + format.FormatPrice(medium) + " or more.",
		},
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers, "unit": format.Unit + "/kWh"})
}

func ptr(v float64) *float64 { return &v }
