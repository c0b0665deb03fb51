package usecase

import (
	"context"
	"fmt"

	domrepo "TradeDesk/internal/domain/repository"
)

// AccountService changes login credentials. The backend invalidates the old
// credentials, so each change is followed by a fresh login.
type AccountService struct {
	backend  domrepo.TradingBackend
	session  *SessionStore
	notifier domrepo.Notifier
}

func NewAccountService(backend domrepo.TradingBackend, session *SessionStore, notifier domrepo.Notifier) *AccountService {
	return &AccountService{backend: backend, session: session, notifier: notifier}
}

func (a *AccountService) ChangeEmail(ctx context.Context, currentPassword, newEmail string) error {
	op := "change_email"
	token, err := a.session.Token()
	if err != nil {
		notifyFailure(a.notifier, op, err)
		return err
	}
	creds := map[string]string{"currentPassword": currentPassword, "newEmail": newEmail}
	if err := a.backend.UpdateCredentials(ctx, token, creds); err != nil {
		notifyFailure(a.notifier, op, err)
		return fmt.Errorf("change email: %w", err)
	}
	notifySuccess(a.notifier, op, "Email updated successfully")

	if _, err := a.session.Login(ctx, newEmail, currentPassword); err != nil {
		return fmt.Errorf("login after email change: %w", err)
	}
	return nil
}

func (a *AccountService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	op := "change_password"
	sess, err := a.session.Current()
	if err != nil {
		notifyFailure(a.notifier, op, err)
		return err
	}
	creds := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	if err := a.backend.UpdateCredentials(ctx, sess.Token, creds); err != nil {
		notifyFailure(a.notifier, op, err)
		return fmt.Errorf("change password: %w", err)
	}
	notifySuccess(a.notifier, op, "Password updated successfully")

	if _, err := a.session.Login(ctx, sess.Email, newPassword); err != nil {
		return fmt.Errorf("login after password change: %w", err)
	}
	return nil
}
