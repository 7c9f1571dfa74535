package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	bookingapp "depositrent/internal/app/handlers/booking"
	"depositrent/internal/app/queries"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	Deposit string `json:"deposit" binding:"required"`
	period
}

type rejectBookingRequest struct {
	Message string `json:"message"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := req.days()
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		Actor:           actor(c),
		CommandID:       generateCommandID(),
		Deposit:         req.Deposit,
		Start:           start,
		End:             end,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) List(c *gin.Context) {
	q := bookingapp.ListBookingsQuery{
		Actor:    actor(c),
		ClientID: c.Query("client_id"),
		Deposit:  c.Query("deposit"),
		Stage:    c.Query("stage"),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	q := bookingapp.GetBookingQuery{Actor: actor(c), BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Approve(c *gin.Context) {
	cmd := bookingapp.ApproveBookingCommand{Actor: actor(c), BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.ApproveBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Reject(c *gin.Context) {
	var req rejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RejectBookingCommand{Actor: actor(c), BookingID: c.Param("id"), Message: req.Message}
	result, err := commands.Dispatch[bookingapp.RejectBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
