package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	depositapp "depositrent/internal/app/handlers/deposits"
	"depositrent/internal/app/queries"
)

type DepositHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Calendar(c *gin.Context)
	CheckAvailability(c *gin.Context)
	AddAvailability(c *gin.Context)
	RemoveAvailability(c *gin.Context)
	AttachPromotion(c *gin.Context)
	DetachPromotion(c *gin.Context)
	Quote(c *gin.Context)
}

type DepositHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createDepositRequest struct {
	Name           string `json:"name" binding:"required"`
	Area           string `json:"area" binding:"required"`
	Size           string `json:"size" binding:"required"`
	ClimateControl bool   `json:"climate_control"`
}

type attachPromotionRequest struct {
	Label    string `json:"label" binding:"required"`
	Discount int    `json:"discount" binding:"required"`
	Validity period `json:"validity" binding:"required"`
}

func (h DepositHandler) List(c *gin.Context) {
	q := depositapp.ListDepositsQuery{Area: c.Query("area"), Size: c.Query("size")}
	result, err := queries.Ask[depositapp.ListDepositsQuery, dto.DepositCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) Create(c *gin.Context) {
	var req createDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := depositapp.CreateDepositCommand{
		Actor:          actor(c),
		Name:           req.Name,
		Area:           req.Area,
		Size:           req.Size,
		ClimateControl: req.ClimateControl,
	}
	result, err := commands.Dispatch[depositapp.CreateDepositCommand, *dto.DepositView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h DepositHandler) Get(c *gin.Context) {
	q := depositapp.GetDepositQuery{Name: c.Param("name")}
	result, err := queries.Ask[depositapp.GetDepositQuery, dto.DepositView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) Calendar(c *gin.Context) {
	q := depositapp.GetCalendarQuery{Name: c.Param("name")}
	result, err := queries.Ask[depositapp.GetCalendarQuery, dto.CalendarView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) CheckAvailability(c *gin.Context) {
	var p period
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := p.days()
	if err != nil {
		badRequest(c, err)
		return
	}
	q := depositapp.CheckAvailabilityQuery{Name: c.Param("name"), Start: start, End: end}
	result, err := queries.Ask[depositapp.CheckAvailabilityQuery, dto.AvailabilityView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) AddAvailability(c *gin.Context) {
	start, end, ok := bindPeriod(c)
	if !ok {
		return
	}
	cmd := depositapp.AddAvailabilityCommand{Actor: actor(c), Deposit: c.Param("name"), Start: start, End: end}
	result, err := commands.Dispatch[depositapp.AddAvailabilityCommand, *dto.CalendarView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) RemoveAvailability(c *gin.Context) {
	start, end, ok := bindPeriod(c)
	if !ok {
		return
	}
	cmd := depositapp.RemoveAvailabilityCommand{Actor: actor(c), Deposit: c.Param("name"), Start: start, End: end}
	result, err := commands.Dispatch[depositapp.RemoveAvailabilityCommand, *dto.CalendarView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) AttachPromotion(c *gin.Context) {
	var req attachPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	from, to, err := req.Validity.days()
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := depositapp.AttachPromotionCommand{
		Actor:     actor(c),
		Deposit:   c.Param("name"),
		Label:     req.Label,
		Discount:  req.Discount,
		ValidFrom: from,
		ValidTo:   to,
	}
	result, err := commands.Dispatch[depositapp.AttachPromotionCommand, *dto.DepositView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h DepositHandler) DetachPromotion(c *gin.Context) {
	cmd := depositapp.DetachPromotionCommand{Actor: actor(c), Deposit: c.Param("name"), PromotionID: c.Param("id")}
	result, err := commands.Dispatch[depositapp.DetachPromotionCommand, *dto.DepositView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DepositHandler) Quote(c *gin.Context) {
	var p period
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := p.days()
	if err != nil {
		badRequest(c, err)
		return
	}
	q := depositapp.QuotePriceQuery{Name: c.Param("name"), Start: start, End: end}
	result, err := queries.Ask[depositapp.QuotePriceQuery, dto.QuoteView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindPeriod(c *gin.Context) (start, end time.Time, ok bool) {
	var p period
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return start, end, false
	}
	start, end, err := p.days()
	if err != nil {
		badRequest(c, err)
		return start, end, false
	}
	return start, end, true
}

var _ DepositHTTP = DepositHandler{}
