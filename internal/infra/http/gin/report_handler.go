package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	"depositrent/internal/app/handlers/reports"
)

type ReportHTTP interface {
	Bookings(c *gin.Context)
}

type ReportHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type bookingReportRequest struct {
	Format  string `json:"format"`
	Deposit string `json:"deposit"`
	Stage   string `json:"stage"`
}

func (h ReportHandler) Bookings(c *gin.Context) {
	var req bookingReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	cmd := reports.GenerateBookingReportCommand{
		Actor:   actor(c),
		Format:  req.Format,
		Deposit: req.Deposit,
		Stage:   req.Stage,
	}
	result, err := commands.Dispatch[reports.GenerateBookingReportCommand, *dto.ReportView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ReportHTTP = ReportHandler{}
