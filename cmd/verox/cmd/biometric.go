package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"verox/go-wallet/internal/biometric"
)

func newBiometricCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biometric",
		Short: "Register and verify biometric authentication",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "register",
			Short: "Prompt once and store the registration secret",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.load(cmd)
				if err != nil {
					return err
				}
				if err := rt.Biometric.Register(cmd.Context()); err != nil {
					return err
				}
				result := map[string]any{"registered": true, "method": rt.Biometric.Method()}
				return opts.render(cmd.OutOrStdout(), result, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s registered\n", color.GreenString("✓"), rt.Biometric.Method())
				})
			},
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Prompt and check the stored registration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.load(cmd)
				if err != nil {
					return err
				}
				verdict, err := rt.Biometric.Verify(cmd.Context())
				if err != nil {
					return err
				}
				result := map[string]any{"verdict": verdict, "method": rt.Biometric.Method()}
				if err := opts.render(cmd.OutOrStdout(), result, func() {
					if verdict == biometric.VerdictVerified {
						fmt.Fprintf(cmd.OutOrStdout(), "%s Verified with %s\n", color.GreenString("✓"), rt.Biometric.Method())
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s Verification denied\n", color.RedString("✗"))
					}
				}); err != nil {
					return err
				}
				if verdict != biometric.VerdictVerified {
					return &CLIError{Code: CodeDenied, Message: "biometric verification denied", Retryable: true, ExitCode: ExitAuth}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "unregister",
			Short: "Remove the registration secret",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.load(cmd)
				if err != nil {
					return err
				}
				if err := rt.Biometric.Unregister(); err != nil {
					return err
				}
				result := map[string]any{"registered": false}
				return opts.render(cmd.OutOrStdout(), result, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s Biometric registration removed\n", color.GreenString("✓"))
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the biometric method, availability and registration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.load(cmd)
				if err != nil {
					return err
				}
				st := rt.Biometric.Status(cmd.Context())
				return opts.render(cmd.OutOrStdout(), st, func() {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Method:     %s\n", st.Method)
					fmt.Fprintf(out, "Capability: %s\n", st.Capability)
					fmt.Fprintf(out, "Registered: %t\n", st.Registered)
					if st.Error != "" {
						fmt.Fprintf(out, "Error:      %s\n", color.RedString(st.Error))
					}
				})
			},
		},
	)
	return cmd
}
