package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

func TestRegister_Success(t *testing.T) {
	var got RegisterRequest
	client := &fakeClient{register: func(_ context.Context, req RegisterRequest) (*Result, error) {
		got = req
		return &Result{Success: true}, nil
	}}
	c, rec := newTestController(client)

	err := c.Register(context.Background(), RegisterRequest{
		Name: "  Asha ", MobileNumber: testMobile, UserType: domain.UserTypeMerchant, Fingerprint: true,
	})

	require.NoError(t, err)
	assert.Equal(t, RegisterRequest{Name: "Asha", MobileNumber: testMobile, UserType: "merchant", Fingerprint: true}, got)
	assert.Equal(t, domain.StageMobileEntry, c.Stage())
	assert.False(t, c.Session().PendingRequest)
	assert.Equal(t, MsgRegistered, rec.last(t).Message)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		req RegisterRequest
		msg string
	}{
		{RegisterRequest{Name: "A", MobileNumber: testMobile, UserType: "customer"}, MsgInvalidName},
		{RegisterRequest{Name: "Asha", MobileNumber: "123", UserType: "customer"}, MsgInvalidMobile},
		{RegisterRequest{Name: "Asha", MobileNumber: testMobile, UserType: "admin"}, MsgInvalidUserType},
	}
	for _, tc := range tests {
		client := &fakeClient{}
		c, rec := newTestController(client)
		require.ErrorIs(t, c.Register(context.Background(), tc.req), domain.ErrValidation)
		assert.Zero(t, client.total())
		assert.Equal(t, tc.msg, rec.last(t).Message)
	}
}

func TestRegister_Failure(t *testing.T) {
	client := &fakeClient{register: func(context.Context, RegisterRequest) (*Result, error) {
		return nil, errors.New("conflict")
	}}
	c, rec := newTestController(client)

	err := c.Register(context.Background(), RegisterRequest{Name: "Asha", MobileNumber: testMobile, UserType: "customer"})

	var se *domain.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.OpRegister, se.Op)
	assert.Equal(t, MsgRegisterFailed, rec.last(t).Message)
	assert.False(t, c.Session().PendingRequest)
}

func TestRegister_OnlyFromMobileEntry(t *testing.T) {
	c, _ := newTestController(&fakeClient{})
	toOTPChallenge(t, c)
	err := c.Register(context.Background(), RegisterRequest{Name: "Asha", MobileNumber: testMobile, UserType: "customer"})
	require.ErrorIs(t, err, domain.ErrStageMismatch)
}
