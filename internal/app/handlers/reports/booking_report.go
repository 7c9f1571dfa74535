package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/policies"
	"depositrent/internal/clock"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

const generateBookingReportKey = "reports.bookings.generate"

const (
	FormatCSV  = "csv"
	FormatText = "txt"
)

var (
	ErrUnknownFormat    = errors.New("reports: format must be csv or txt")
	ErrUploaderRequired = errors.New("reports: uploader required")
)

// Uploader stores a rendered report and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}

type GenerateBookingReportCommand struct {
	Actor   policies.Actor
	Format  string `validate:"omitempty,oneof=csv txt"`
	Deposit string
	Stage   string `validate:"omitempty,oneof=Pending Approved Rejected"`
}

func (c GenerateBookingReportCommand) Key() string            { return generateBookingReportKey }
func (c GenerateBookingReportCommand) Caller() policies.Actor { return c.Actor }
func (c GenerateBookingReportCommand) AdminOnly()             {}

type GenerateBookingReportHandler struct {
	Clock    clock.Clock
	Uploader Uploader
	Prefix   string
	Logger   *slog.Logger
}

var reportHeader = []string{"booking_id", "deposit", "client_id", "start", "end", "days", "stage", "amount", "payment_status"}

func (h *GenerateBookingReportHandler) Handle(ctx context.Context, cmd GenerateBookingReportCommand) (*dto.ReportView, error) {
	if h.Uploader == nil {
		return nil, ErrUploaderRequired
	}
	format := strings.ToLower(strings.TrimSpace(cmd.Format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatText {
		return nil, ErrUnknownFormat
	}
	filter := domainbooking.Filter{Stage: domainbooking.Stage(cmd.Stage)}
	if strings.TrimSpace(cmd.Deposit) != "" {
		name, err := domaindeposits.ValidateName(cmd.Deposit)
		if err != nil {
			return nil, err
		}
		filter.DepositName = name
	}

	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := unit.Bookings().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, reportRow(b))
	}
	var buf bytes.Buffer
	contentType := "text/csv"
	if format == FormatCSV {
		err = renderCSV(&buf, rows)
	} else {
		contentType = "text/plain"
		err = renderText(&buf, rows)
	}
	if err != nil {
		return nil, err
	}

	generatedAt := h.now()
	key := fmt.Sprintf("%sbookings-%s.%s", h.Prefix, generatedAt.Format("20060102T150405Z"), format)
	size := int64(buf.Len())
	url, err := h.Uploader.Upload(ctx, key, &buf, contentType)
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking report generated", "key", key, "rows", len(rows), "format", format)
	}
	return &dto.ReportView{
		Key:         key,
		Format:      format,
		Rows:        len(rows),
		Size:        size,
		URL:         url,
		GeneratedAt: generatedAt,
	}, nil
}

func (h *GenerateBookingReportHandler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}

func reportRow(b *domainbooking.Booking) []string {
	amount, status := "", ""
	if b.Payment != nil {
		amount = strconv.FormatFloat(b.Payment.Amount, 'f', 2, 64)
		status = string(b.Payment.Status)
	}
	return []string{
		string(b.ID),
		string(b.DepositName),
		b.ClientID,
		b.Duration.Start.Format(daterange.Layout),
		b.Duration.End.Format(daterange.Layout),
		strconv.Itoa(b.Duration.Days()),
		string(b.Stage),
		amount,
		status,
	}
}

func renderCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func renderText(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(reportHeader, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func Register(reg *commands.Registry, h *GenerateBookingReportHandler) {
	commands.Register[GenerateBookingReportCommand, *dto.ReportView](reg, h)
}

var _ policies.AdminOnly = GenerateBookingReportCommand{}
