package usecase

import (
	"errors"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/service/backend"
)

func notifySuccess(n domrepo.Notifier, op, message string) {
	n.Publish(models.NewNotification(models.LevelSuccess, op, message))
}

func notifyFailure(n domrepo.Notifier, op string, err error) {
	n.Publish(models.NewNotification(models.LevelError, op, failureMessage(err)))
}

// failureMessage prefers the backend's own wording over the Go error chain.
func failureMessage(err error) string {
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Message
	}
	if errors.Is(err, ErrNoSession) {
		return "Authentication required"
	}
	return err.Error()
}
