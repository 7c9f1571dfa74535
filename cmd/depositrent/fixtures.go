package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	depositapp "depositrent/internal/app/handlers/deposits"
	"depositrent/internal/app/policies"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
	domainuser "depositrent/internal/domain/user"
)

// fixturesActor seeds deposits on behalf of the operator.
var fixturesActor = policies.Actor{UserID: "fixtures", Role: domainuser.RoleAdministrator}

type depositFixture struct {
	Name           string             `json:"name"`
	Area           string             `json:"area"`
	Size           string             `json:"size"`
	ClimateControl bool               `json:"climate_control"`
	Availability   []fixturePeriod    `json:"availability"`
	Promotions     []promotionFixture `json:"promotions"`
}

type fixturePeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type promotionFixture struct {
	Label    string        `json:"label"`
	Discount int           `json:"discount"`
	Validity fixturePeriod `json:"validity"`
}

// loadDepositFixtures creates the deposits listed in path through the command
// bus. Deposits that already exist are left alone.
func (a *application) loadDepositFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("deposit fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("deposit fixtures file empty", "path", path)
		return nil
	}

	var fixtures []depositFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures {
		if err := a.importDeposit(ctx, fx); err != nil {
			if errors.Is(err, domaindeposits.ErrDepositExists) {
				logger.Info("deposit fixture already present", "deposit", fx.Name)
				continue
			}
			logger.Error("deposit fixture rejected", "deposit", fx.Name, "error", err)
			continue
		}
		logger.Info("deposit fixture imported", "deposit", fx.Name)
	}
	return nil
}

func (a *application) importDeposit(ctx context.Context, fx depositFixture) error {
	_, err := commands.Dispatch[depositapp.CreateDepositCommand, *dto.DepositView](ctx, a.commands, depositapp.CreateDepositCommand{
		Actor:          fixturesActor,
		Name:           fx.Name,
		Area:           fx.Area,
		Size:           fx.Size,
		ClimateControl: fx.ClimateControl,
	})
	if err != nil {
		return err
	}
	for _, p := range fx.Availability {
		period, err := p.parse()
		if err != nil {
			return err
		}
		_, err = commands.Dispatch[depositapp.AddAvailabilityCommand, *dto.CalendarView](ctx, a.commands, depositapp.AddAvailabilityCommand{
			Actor:   fixturesActor,
			Deposit: fx.Name,
			Start:   period.Start,
			End:     period.End,
		})
		if err != nil {
			return fmt.Errorf("availability %s..%s: %w", p.Start, p.End, err)
		}
	}
	for _, promo := range fx.Promotions {
		validity, err := promo.Validity.parse()
		if err != nil {
			return err
		}
		_, err = commands.Dispatch[depositapp.AttachPromotionCommand, *dto.DepositView](ctx, a.commands, depositapp.AttachPromotionCommand{
			Actor:     fixturesActor,
			Deposit:   fx.Name,
			Label:     promo.Label,
			Discount:  promo.Discount,
			ValidFrom: validity.Start,
			ValidTo:   validity.End,
		})
		if err != nil {
			return fmt.Errorf("promotion %q: %w", promo.Label, err)
		}
	}
	return nil
}

func (p fixturePeriod) parse() (daterange.DateRange, error) {
	return daterange.Parse(p.Start, p.End)
}
