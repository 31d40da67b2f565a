package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/service"
	"github.com/Krishna101010101010/Bio-pay/internal/notify"
)

var (
	loginMobile string
	showToken   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with mobile number, OTP and fingerprint",
	Long: `Sign in interactively. At the OTP prompt enter the 6-digit code,
"resend" for a new code once the countdown has finished, or "back" to change the number.
At the fingerprint prompt answer y, n, or "back" to return to the OTP step.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginMobile, "mobile", "", "Mobile number (prompted when empty)")
	loginCmd.Flags().BoolVar(&showToken, "show-token", false, "Print the access token after sign-in")
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	done, err := signIn(cmd.Context(), con, client, loginMobile,
		service.WithLogger(logger),
		service.WithResendWindow(cfg.ResendWindow()),
		service.WithTickInterval(cfg.TickInterval()),
	)
	if err != nil {
		return err
	}
	con.printf("Signed in as %s.\n", domain.MaskMobile(done.MobileNumber))
	if showToken && done.AccessToken != "" {
		con.printf("Access token: %s\n", done.AccessToken)
	}
	return nil
}

// signIn drives a StageController from console input until the flow completes.
// mobile, when set, is submitted without prompting.
func signIn(ctx context.Context, con *console, client service.AuthClient, mobile string, opts ...service.Option) (domain.CompletedSession, error) {
	var done domain.CompletedSession
	opts = append(opts,
		service.WithOnComplete(func(s domain.CompletedSession) { done = s }),
		service.WithOnResendTick(func(remaining int) {
			if remaining == 0 {
				con.printf("\nYou can now request a new OTP (type \"resend\").\n")
			}
		}),
	)
	ctrl := service.NewStageController(client, notify.NewWriterNotifier(con), opts...)
	defer ctrl.Close()

	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		var err error
		switch ctrl.Stage() {
		case domain.StageMobileEntry:
			err = mobileStep(ctx, con, ctrl, &mobile)
		case domain.StageOTPChallenge:
			err = otpStep(ctx, con, ctrl)
		case domain.StageBiometricConfirmation:
			err = biometricStep(ctx, con, ctrl)
		case domain.StageComplete:
			return done, nil
		}
		if errors.Is(err, errInputClosed) || errors.Is(err, context.Canceled) {
			return done, err
		}
	}
}

func mobileStep(ctx context.Context, con *console, ctrl *service.StageController, preset *string) error {
	input := *preset
	*preset = ""
	if input == "" {
		var err error
		if input, err = con.ask("Mobile number: "); err != nil {
			return err
		}
	}
	return ctrl.SubmitMobileNumber(ctx, input)
}

func otpStep(ctx context.Context, con *console, ctrl *service.StageController) error {
	otp := ctrl.OTP()
	prompt := "OTP (or resend, back): "
	if wait := otp.ResendWait(); wait > 0 {
		prompt = fmt.Sprintf("OTP [resend in %s] (or back): ", wait)
	}
	input, err := con.ask(prompt)
	if err != nil {
		return err
	}
	switch strings.ToLower(input) {
	case "back":
		return ctrl.GoBack(ctx)
	case "resend":
		err := otp.Resend(ctx)
		if errors.Is(err, domain.ErrResendNotReady) {
			con.printf("Resend available in %s.\n", otp.ResendWait())
		}
		return err
	}
	if err := otp.SetCode(input); err != nil {
		con.printf("%s\n", service.MsgInvalidOTPFormat)
		return err
	}
	return otp.Verify(ctx)
}

func biometricStep(ctx context.Context, con *console, ctrl *service.StageController) error {
	for {
		input, err := con.ask("Confirm fingerprint [y/n/back]: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(input) {
		case "y", "yes":
			return ctrl.CompleteBiometric(ctx, true)
		case "n", "no":
			return ctrl.CompleteBiometric(ctx, false)
		case "back":
			return ctrl.GoBack(ctx)
		}
		con.printf("Please answer y, n or back.\n")
	}
}
