package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	maxListedDrafts = 10
	helpMessage     = "Commands: /summary (today), /summary week, /drafts, /stock, /help. Any other text is saved as an order draft."
)

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	DailyReport(ctx context.Context, ns string, day time.Time) (string, error)
	WeeklyReport(ctx context.Context, ns string, end time.Time) (string, error)
}

// DraftLister lists order drafts.
type DraftLister interface {
	ListDrafts(ctx context.Context, ns string, status models.DraftStatus) ([]models.OrderDraft, error)
}

// InventoryReader reports stock levels.
type InventoryReader interface {
	Inventory(ctx context.Context, ns string) ([]models.InventoryLevel, error)
}

// Dispatcher executes owner commands received over WhatsApp.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface for one business account.
type Service struct {
	owner     string
	reporting ReportingAdapter
	drafts    DraftLister
	inventory InventoryReader
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a command dispatcher acting on the owner's namespace.
func NewService(owner string, reporting ReportingAdapter, drafts DraftLister, inventory InventoryReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		owner:     owner,
		reporting: reporting,
		drafts:    drafts,
		inventory: inventory,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleCommand runs the command and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandSummary:
		if len(cmd.Args) > 0 && cmd.Args[0] == "week" {
			return s.reporting.WeeklyReport(ctx, s.owner, s.now())
		}
		return s.reporting.DailyReport(ctx, s.owner, s.now())
	case models.CommandDrafts:
		return s.pendingDrafts(ctx)
	case models.CommandStock:
		return s.stock(ctx)
	case models.CommandHelp:
		return helpMessage, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Raw)
	}
}

// HelpMessage is the reply to unknown commands.
func HelpMessage() string {
	return helpMessage
}

func (s *Service) pendingDrafts(ctx context.Context) (string, error) {
	drafts, err := s.drafts.ListDrafts(ctx, s.owner, models.DraftPending)
	if err != nil {
		return "", err
	}
	if len(drafts) == 0 {
		return "No pending drafts.", nil
	}

	lines := []string{fmt.Sprintf("%d pending drafts:", len(drafts))}
	for i, d := range drafts {
		if i == maxListedDrafts {
			lines = append(lines, fmt.Sprintf("... and %d more", len(drafts)-maxListedDrafts))
			break
		}
		name := d.Order.Name
		if name == "" {
			name = "(no name)"
		}
		line := fmt.Sprintf("%d. %s %s", i+1, name, d.Order.Phone)
		if d.Order.CODAmount != nil {
			line += " " + models.FormatAmount(*d.Order.CODAmount) + " TK"
		}
		if missing := d.Order.Missing(); len(missing) > 0 {
			line += " (missing " + strings.Join(missing, ", ") + ")"
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) stock(ctx context.Context) (string, error) {
	levels, err := s.inventory.Inventory(ctx, s.owner)
	if err != nil {
		return "", err
	}
	if len(levels) == 0 {
		return "No products yet.", nil
	}

	lines := []string{"Stock (packs left):"}
	for _, l := range levels {
		lines = append(lines, fmt.Sprintf("%s: %d", l.Key, l.Remaining))
	}
	return strings.Join(lines, "\n"), nil
}
