package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/histavg/internal/chain"
	"github.com/guttosm/histavg/internal/daterange"
	"github.com/guttosm/histavg/internal/domain/dto"
	"github.com/guttosm/histavg/internal/domain/models"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/middleware"
	"github.com/guttosm/histavg/internal/service"
	"github.com/guttosm/histavg/internal/validation"
)

// Handler provides HTTP handlers for the adapter endpoints.
//
// Responsibilities:
//   - Decode the job envelope and validate its data object
//   - Call the services with the request context
//   - Translate results and failures into the job response envelope
type Handler struct {
	avg       service.AverageService
	tvl       service.TVLService
	validator *validation.Validator
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - avg: computes historical averages.
//   - tvl: reads vault total assets; may be nil when no chain endpoint is wired.
//   - v: validates job payloads.
func NewHandler(avg service.AverageService, tvl service.TVLService, v *validation.Validator) *Handler {
	return &Handler{avg: avg, tvl: tvl, validator: v}
}

// HistoricalAverage handles POST /api/v1/historical-average.
//
// HistoricalAverage godoc
// @Summary      Historical average price
// @Description  Averages the daily prices of a pair over a date range. The range is given by fromDate and toDate, or by one of them plus days.
// @Tags         adapter
// @Accept       json
// @Produce      json
// @Param        job  body      models.JobRequest[models.AverageParams]  true  "Adapter job"
// @Success      200  {object}  dto.JobResponse{data=dto.AverageData}   "Success"
// @Failure      400  {object}  dto.ErrorResponse                       "Invalid job"
// @Failure      404  {object}  dto.ErrorResponse                       "No prices in range"
// @Failure      502  {object}  dto.ErrorResponse                       "Price provider failed"
// @Failure      500  {object}  dto.ErrorResponse                       "Internal Error"
// @Router       /api/v1/historical-average [post]
func (h *Handler) HistoricalAverage(c *gin.Context) {
	var job models.JobRequest[models.AverageParams]
	if err := c.ShouldBindJSON(&job); err != nil {
		h.fail(c, job.JobRunID(), http.StatusBadRequest, "invalid request body", err)
		return
	}
	jobRunID := job.JobRunID()

	if err := h.validator.Average(job.Data); err != nil {
		h.fail(c, jobRunID, http.StatusBadRequest, "invalid request", err)
		return
	}

	avg, err := h.avg.HistoricalAverage(c.Request.Context(), *job.Data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPrices):
			h.fail(c, jobRunID, http.StatusNotFound, "no prices found", err)
		case errors.Is(err, service.ErrUnknownSource):
			h.fail(c, jobRunID, http.StatusBadRequest, "invalid request", err)
		case errors.Is(err, service.ErrProvider):
			h.fail(c, jobRunID, http.StatusBadGateway, "price provider failed", err)
		default:
			h.fail(c, jobRunID, http.StatusInternalServerError, "failed to compute average", err)
		}
		return
	}

	result := avg.Value.String()
	c.JSON(http.StatusOK, dto.JobResponse{
		JobRunID: jobRunID,
		Result:   result,
		Data: dto.AverageData{
			From:     avg.Base,
			To:       avg.Quote,
			Source:   avg.Source,
			FromDate: avg.Range.From().Format(daterange.ISOLayout),
			ToDate:   avg.Range.To().Format(daterange.ISOLayout),
			Points:   avg.Points,
			Cached:   avg.FromCache,
			Result:   result,
		},
		StatusCode: http.StatusOK,
	})
}

// TVL handles POST /api/v1/tvl.
//
// TVL godoc
// @Summary      Vault total value locked
// @Description  Reads totalAssets() of a vault contract on Ethereum or Polygon.
// @Tags         adapter
// @Accept       json
// @Produce      json
// @Param        job  body      models.JobRequest[models.TVLParams]  true  "Adapter job"
// @Success      200  {object}  dto.JobResponse{data=dto.TVLData}   "Success"
// @Failure      400  {object}  dto.ErrorResponse                   "Invalid job"
// @Failure      502  {object}  dto.ErrorResponse                   "RPC call failed"
// @Failure      503  {object}  dto.ErrorResponse                   "Network not configured"
// @Router       /api/v1/tvl [post]
func (h *Handler) TVL(c *gin.Context) {
	var job models.JobRequest[models.TVLParams]
	if err := c.ShouldBindJSON(&job); err != nil {
		h.fail(c, job.JobRunID(), http.StatusBadRequest, "invalid request body", err)
		return
	}
	jobRunID := job.JobRunID()

	if err := h.validator.TVL(job.Data); err != nil {
		h.fail(c, jobRunID, http.StatusBadRequest, "invalid request", err)
		return
	}
	if h.tvl == nil {
		h.fail(c, jobRunID, http.StatusServiceUnavailable, "vault reads are not configured", chain.ErrNetworkUnavailable)
		return
	}

	out, err := h.tvl.TotalValueLocked(c.Request.Context(), *job.Data)
	if err != nil {
		if errors.Is(err, chain.ErrNetworkUnavailable) {
			h.fail(c, jobRunID, http.StatusServiceUnavailable, "network not configured", err)
			return
		}
		h.fail(c, jobRunID, http.StatusBadGateway, "failed to read vault", err)
		return
	}

	result := out.TotalAssets.String()
	c.JSON(http.StatusOK, dto.JobResponse{
		JobRunID: jobRunID,
		Result:   result,
		Data: dto.TVLData{
			VaultAddress: out.Address,
			Network:      out.Network,
			Result:       result,
		},
		StatusCode: http.StatusOK,
	})
}

// fail writes the job error envelope. Server-side failures are logged with
// the cause; the client still receives it in the "error" field.
func (h *Handler) fail(c *gin.Context, jobRunID string, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		rid, _ := c.Get(middleware.RequestIDKey)
		logger.L().Error().Err(err).
			Interface("request_id", rid).
			Str("job_run_id", jobRunID).
			Int("status", status).
			Msg(message)
	}
	c.AbortWithStatusJSON(status, dto.NewJobError(jobRunID, status, message, err))
}
