package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/service"
	"github.com/Krishna101010101010/Bio-pay/internal/notify"
)

var registerReq service.RegisterRequest

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a BioPay account",
	Long:  "Create an account. Fields not given as flags are prompted for.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
		return register(cmd.Context(), con, client, registerReq, cmd.Flags().Changed("fingerprint"), service.WithLogger(logger))
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerReq.Name, "name", "", "Full name")
	registerCmd.Flags().StringVar(&registerReq.MobileNumber, "mobile", "", "Mobile number")
	registerCmd.Flags().StringVar(&registerReq.UserType, "user-type", "", "customer or merchant")
	registerCmd.Flags().BoolVar(&registerReq.Fingerprint, "fingerprint", false, "Fingerprint enrolled on this device")
}

// register fills the missing fields of req from the console and submits it once.
func register(ctx context.Context, con *console, client service.AuthClient, req service.RegisterRequest, fingerprintSet bool, opts ...service.Option) error {
	var err error
	if req.Name == "" {
		if req.Name, err = con.ask("Name: "); err != nil {
			return err
		}
	}
	if req.MobileNumber == "" {
		if req.MobileNumber, err = con.ask("Mobile number: "); err != nil {
			return err
		}
	}
	if req.UserType == "" {
		if req.UserType, err = con.ask("User type [customer/merchant]: "); err != nil {
			return err
		}
		if req.UserType == "" {
			req.UserType = domain.UserTypeCustomer
		}
	}
	req.UserType = strings.ToLower(req.UserType)
	if !fingerprintSet {
		if req.Fingerprint, err = con.confirm("Enroll fingerprint [y/n]: "); err != nil {
			return err
		}
	}

	ctrl := service.NewStageController(client, notify.NewWriterNotifier(con), opts...)
	defer ctrl.Close()
	return ctrl.Register(ctx, req)
}
