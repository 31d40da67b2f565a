package service

import (
	"context"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

// Register creates an account for req. It is only accepted in StageMobileEntry and shares the
// in-flight slot with the sign-in requests. Invalid fields fail locally with a *domain.ValidationError.
// Registration does not move the flow; the user signs in with SubmitMobileNumber afterwards.
func (c *StageController) Register(ctx context.Context, req RegisterRequest) error {
	var clean RegisterRequest
	t, err := c.begin(domain.StageMobileEntry, func() error {
		name, mobile, err := domain.ValidateRegistration(req.Name, req.MobileNumber, req.UserType)
		if err != nil {
			return err
		}
		clean = RegisterRequest{Name: name, MobileNumber: mobile, UserType: req.UserType, Fingerprint: req.Fingerprint}
		return nil
	})
	if err != nil {
		return c.rejected(ctx, domain.StageMobileEntry, err)
	}

	res, callErr := c.client.Register(ctx, clean)

	c.mu.Lock()
	if !c.settleLocked(t) {
		c.mu.Unlock()
		return c.stale(domain.OpRegister, t)
	}
	c.mu.Unlock()
	if err := serviceOutcome(domain.OpRegister, res, callErr); err != nil {
		c.requestFailed(ctx, domain.StageMobileEntry, clean.MobileNumber, domain.OpRegister, MsgRegisterFailed, err)
		return err
	}
	c.requestSucceeded(ctx, domain.StageMobileEntry, clean.MobileNumber, domain.OpRegister, MsgRegistered)
	return nil
}
