package deposits

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/middleware"
	"depositrent/internal/app/outbox"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/uow"
	"depositrent/internal/clock"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

const (
	createDepositKey      = "deposits.create"
	addAvailabilityKey    = "deposits.availability.add"
	removeAvailabilityKey = "deposits.availability.remove"
	attachPromotionKey    = "deposits.promotions.attach"
	detachPromotionKey    = "deposits.promotions.detach"
)

type CreateDepositCommand struct {
	Actor          policies.Actor
	Name           string `validate:"required,max=100"`
	Area           string `validate:"required"`
	Size           string `validate:"required"`
	ClimateControl bool
}

func (c CreateDepositCommand) Key() string            { return createDepositKey }
func (c CreateDepositCommand) Caller() policies.Actor { return c.Actor }
func (c CreateDepositCommand) AdminOnly()             {}
func (c CreateDepositCommand) DepositKey() string     { return strings.TrimSpace(c.Name) }

type AddAvailabilityCommand struct {
	Actor   policies.Actor
	Deposit string    `validate:"required"`
	Start   time.Time `validate:"required"`
	End     time.Time `validate:"required"`
}

func (c AddAvailabilityCommand) Key() string            { return addAvailabilityKey }
func (c AddAvailabilityCommand) Caller() policies.Actor { return c.Actor }
func (c AddAvailabilityCommand) AdminOnly()             {}
func (c AddAvailabilityCommand) DepositKey() string     { return strings.TrimSpace(c.Deposit) }

type RemoveAvailabilityCommand struct {
	Actor   policies.Actor
	Deposit string    `validate:"required"`
	Start   time.Time `validate:"required"`
	End     time.Time `validate:"required"`
}

func (c RemoveAvailabilityCommand) Key() string            { return removeAvailabilityKey }
func (c RemoveAvailabilityCommand) Caller() policies.Actor { return c.Actor }
func (c RemoveAvailabilityCommand) AdminOnly()             {}
func (c RemoveAvailabilityCommand) DepositKey() string     { return strings.TrimSpace(c.Deposit) }

type AttachPromotionCommand struct {
	Actor     policies.Actor
	Deposit   string    `validate:"required"`
	Label     string    `validate:"required,max=20"`
	Discount  int       `validate:"min=5,max=70"`
	ValidFrom time.Time `validate:"required"`
	ValidTo   time.Time `validate:"required"`
}

func (c AttachPromotionCommand) Key() string            { return attachPromotionKey }
func (c AttachPromotionCommand) Caller() policies.Actor { return c.Actor }
func (c AttachPromotionCommand) AdminOnly()             {}
func (c AttachPromotionCommand) DepositKey() string     { return strings.TrimSpace(c.Deposit) }

type DetachPromotionCommand struct {
	Actor       policies.Actor
	Deposit     string `validate:"required"`
	PromotionID string `validate:"required"`
}

func (c DetachPromotionCommand) Key() string            { return detachPromotionKey }
func (c DetachPromotionCommand) Caller() policies.Actor { return c.Actor }
func (c DetachPromotionCommand) AdminOnly()             {}
func (c DetachPromotionCommand) DepositKey() string     { return strings.TrimSpace(c.Deposit) }

// CommandHandlers serves every administrator command on deposits. Each
// command runs inside the unit opened by the transaction middleware.
type CommandHandlers struct {
	Clock   clock.Clock
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	NewID   func() string
}

func (h *CommandHandlers) CreateDeposit(ctx context.Context, cmd CreateDepositCommand) (*dto.DepositView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	dep, err := domaindeposits.NewDeposit(domaindeposits.CreateParams{
		Name:           cmd.Name,
		Area:           cmd.Area,
		Size:           cmd.Size,
		ClimateControl: cmd.ClimateControl,
		Now:            h.now(),
	})
	if err != nil {
		return nil, err
	}
	existing, err := unit.Deposits().ByName(ctx, dep.Name)
	switch {
	case err == nil && existing != nil:
		return nil, domaindeposits.ErrDepositExists
	case err != nil && !errors.Is(err, domaindeposits.ErrDepositNotFound):
		return nil, err
	}
	if err := h.save(ctx, unit, dep); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "deposit created", "deposit", dep.Name, "area", dep.Area, "size", dep.Size)
	view := dto.MapDeposit(dep)
	return &view, nil
}

func (h *CommandHandlers) AddAvailability(ctx context.Context, cmd AddAvailabilityCommand) (*dto.CalendarView, error) {
	return h.mutate(ctx, cmd.Deposit, func(dep *domaindeposits.Deposit, now time.Time) error {
		r, err := daterange.New(cmd.Start, cmd.End)
		if err != nil {
			return err
		}
		return dep.AddAvailabilityPeriod(r, now)
	})
}

func (h *CommandHandlers) RemoveAvailability(ctx context.Context, cmd RemoveAvailabilityCommand) (*dto.CalendarView, error) {
	return h.mutate(ctx, cmd.Deposit, func(dep *domaindeposits.Deposit, now time.Time) error {
		r, err := daterange.New(cmd.Start, cmd.End)
		if err != nil {
			return err
		}
		dep.RemoveAvailabilityPeriod(r, now)
		return nil
	})
}

func (h *CommandHandlers) AttachPromotion(ctx context.Context, cmd AttachPromotionCommand) (*dto.DepositView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	dep, err := loadDeposit(ctx, unit, cmd.Deposit)
	if err != nil {
		return nil, err
	}
	validity, err := daterange.New(cmd.ValidFrom, cmd.ValidTo)
	if err != nil {
		return nil, err
	}
	promo, err := domaindeposits.NewPromotion(domaindeposits.PromotionParams{
		ID:       domaindeposits.PromotionID(h.newID()),
		Label:    cmd.Label,
		Discount: cmd.Discount,
		Validity: validity,
	})
	if err != nil {
		return nil, err
	}
	if err := dep.AddPromotion(promo, h.now()); err != nil {
		return nil, err
	}
	if err := h.save(ctx, unit, dep); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "promotion attached", "deposit", dep.Name, "promotion_id", promo.ID, "discount", promo.Discount)
	view := dto.MapDeposit(dep)
	return &view, nil
}

func (h *CommandHandlers) DetachPromotion(ctx context.Context, cmd DetachPromotionCommand) (*dto.DepositView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	dep, err := loadDeposit(ctx, unit, cmd.Deposit)
	if err != nil {
		return nil, err
	}
	if err := dep.RemovePromotion(domaindeposits.PromotionID(strings.TrimSpace(cmd.PromotionID)), h.now()); err != nil {
		return nil, err
	}
	if err := h.save(ctx, unit, dep); err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "promotion detached", "deposit", dep.Name, "promotion_id", cmd.PromotionID)
	view := dto.MapDeposit(dep)
	return &view, nil
}

func (h *CommandHandlers) mutate(ctx context.Context, name string, apply func(*domaindeposits.Deposit, time.Time) error) (*dto.CalendarView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	dep, err := loadDeposit(ctx, unit, name)
	if err != nil {
		return nil, err
	}
	if err := apply(dep, h.now()); err != nil {
		return nil, err
	}
	if err := h.save(ctx, unit, dep); err != nil {
		return nil, err
	}
	h.logger().DebugContext(ctx, "deposit availability changed", "deposit", dep.Name, "open_periods", len(dep.Availability.Available()))
	view := dto.MapCalendar(dep)
	return &view, nil
}

func (h *CommandHandlers) save(ctx context.Context, unit uow.UnitOfWork, dep *domaindeposits.Deposit) error {
	if err := unit.Deposits().Save(ctx, dep); err != nil {
		return err
	}
	return outbox.Record(ctx, h.Outbox, h.Encoder, dep)
}

func (h *CommandHandlers) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}

func (h *CommandHandlers) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *CommandHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func loadDeposit(ctx context.Context, unit uow.UnitOfWork, raw string) (*domaindeposits.Deposit, error) {
	name, err := domaindeposits.ValidateName(raw)
	if err != nil {
		return nil, err
	}
	return unit.Deposits().ByName(ctx, name)
}

// RegisterCommands wires the handlers into reg.
func RegisterCommands(reg *commands.Registry, h *CommandHandlers) {
	commands.Register[CreateDepositCommand, *dto.DepositView](reg, commands.HandlerFunc[CreateDepositCommand, *dto.DepositView](h.CreateDeposit))
	commands.Register[AddAvailabilityCommand, *dto.CalendarView](reg, commands.HandlerFunc[AddAvailabilityCommand, *dto.CalendarView](h.AddAvailability))
	commands.Register[RemoveAvailabilityCommand, *dto.CalendarView](reg, commands.HandlerFunc[RemoveAvailabilityCommand, *dto.CalendarView](h.RemoveAvailability))
	commands.Register[AttachPromotionCommand, *dto.DepositView](reg, commands.HandlerFunc[AttachPromotionCommand, *dto.DepositView](h.AttachPromotion))
	commands.Register[DetachPromotionCommand, *dto.DepositView](reg, commands.HandlerFunc[DetachPromotionCommand, *dto.DepositView](h.DetachPromotion))
}

var (
	_ policies.AdminOnly       = CreateDepositCommand{}
	_ middleware.DepositScoped = AddAvailabilityCommand{}
	_ middleware.DepositScoped = RemoveAvailabilityCommand{}
	_ middleware.DepositScoped = AttachPromotionCommand{}
	_ middleware.DepositScoped = DetachPromotionCommand{}
)
