package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/daftuyda/Igris/internal/service"
	"github.com/gin-gonic/gin"
)

func GetProfile(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := app.Service().Profile(c.Request.Context(), currentUserID(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to load profile")
			return
		}
		HandleSuccess(c, app.Logger(), profile, nil)
	}
}

func GetLevel(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := app.Service().Store().GetUser(c.Request.Context(), currentUserID(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to load user")
			return
		}
		HandleSuccess(c, app.Logger(), app.Service().GetLevelProgress(user), nil)
	}
}

// GetXPLog returns ledger entries and totals for ?from=&to= (RFC3339), or for
// the current local day when both are omitted.
func GetXPLog(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := currentUserID(c)
		fromParam, toParam := c.Query("from"), c.Query("to")

		var summary *service.XPSummary
		var err error
		switch {
		case fromParam == "" && toParam == "":
			summary, err = app.Service().LatestDaySummary(ctx, userID)
		case fromParam == "" || toParam == "":
			HandleError(c, app.Logger(), errors.New("both from and to are required"), http.StatusBadRequest, "Invalid window")
			return
		default:
			from, perr := time.Parse(time.RFC3339, fromParam)
			if perr != nil {
				HandleError(c, app.Logger(), perr, http.StatusBadRequest, "Invalid from")
				return
			}
			to, perr := time.Parse(time.RFC3339, toParam)
			if perr != nil {
				HandleError(c, app.Logger(), perr, http.StatusBadRequest, "Invalid to")
				return
			}
			summary, err = app.Service().GetXpLogSummary(ctx, userID, from, to)
		}
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to load xp log")
			return
		}
		HandleSuccess(c, app.Logger(), summary, map[string]any{"count": len(summary.Entries)})
	}
}

func PutTimezone(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TimezoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request: timezone required")
			return
		}
		user, err := app.Service().SetTimezone(c.Request.Context(), currentUserID(c), &req)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to change timezone")
			return
		}
		HandleSuccess(c, app.Logger(), user, nil)
	}
}

// PostEvaluate closes the caller's day immediately. Disabled unless configured.
func PostEvaluate(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.AllowManualEvaluation() {
			HandleError(c, app.Logger(), errors.New("manual evaluation disabled"), http.StatusForbidden, "Manual evaluation is disabled")
			return
		}
		result, err := app.Service().TriggerEvaluationNow(c.Request.Context(), currentUserID(c))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Evaluation failed")
			return
		}
		HandleSuccess(c, app.Logger(), result, nil)
	}
}
