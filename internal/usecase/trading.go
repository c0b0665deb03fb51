package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/pkg/util"
)

var ErrInvalidExpiration = errors.New("invalid expiration date")

// TradingControl starts and stops strategies and fires manual trades.
type TradingControl struct {
	backend  domrepo.TradingBackend
	session  *SessionStore
	notifier domrepo.Notifier
}

func NewTradingControl(backend domrepo.TradingBackend, session *SessionStore, notifier domrepo.Notifier) *TradingControl {
	return &TradingControl{backend: backend, session: session, notifier: notifier}
}

func (c *TradingControl) Start(ctx context.Context, kind models.StrategyKind) (string, error) {
	return c.toggle(ctx, kind, "start", c.backend.StartTrading)
}

func (c *TradingControl) Stop(ctx context.Context, kind models.StrategyKind) (string, error) {
	return c.toggle(ctx, kind, "stop", c.backend.StopTrading)
}

func (c *TradingControl) toggle(
	ctx context.Context,
	kind models.StrategyKind,
	verb string,
	call func(context.Context, string, models.StrategyKind) (string, error),
) (string, error) {
	op := verb + "_" + kind.String()
	token, err := c.session.Token()
	if err != nil {
		notifyFailure(c.notifier, op, err)
		return "", err
	}
	msg, err := call(ctx, token, kind)
	if err != nil {
		notifyFailure(c.notifier, op, err)
		return "", fmt.Errorf("%s trading %s: %w", verb, kind, err)
	}
	if msg == "" {
		msg = fmt.Sprintf("%s trading %sed", kind.Title(), verb)
	}
	notifySuccess(c.notifier, op, msg)
	return msg, nil
}

// ManualTrigger sends a one-off zeroday order. Expiration, when set, is
// normalised to YYYY-MM-DD.
func (c *TradingControl) ManualTrigger(ctx context.Context, req *models.ManualTriggerRequest) (string, error) {
	op := "manual_trigger"
	r := *req
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	if r.Symbol == "" {
		r.Symbol = "SPX"
	}
	if r.Expiration != "" {
		d, ok := util.ParseDate(r.Expiration)
		if !ok {
			err := fmt.Errorf("%w: %q", ErrInvalidExpiration, r.Expiration)
			notifyFailure(c.notifier, op, err)
			return "", err
		}
		r.Expiration = util.FormatDate(d)
	}

	token, err := c.session.Token()
	if err != nil {
		notifyFailure(c.notifier, op, err)
		return "", err
	}
	msg, err := c.backend.ManualTrigger(ctx, token, &r)
	if err != nil {
		notifyFailure(c.notifier, op, err)
		return "", fmt.Errorf("manual trigger: %w", err)
	}
	notifySuccess(c.notifier, op, msg)
	return msg, nil
}
