package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/creator-studio/internal/authflow"
	"github.com/creator-studio/internal/client"
	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an emailed code or an authenticator app",
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.New(ctx.apiURL, nil)
			session, err := runLogin(cmd.Context(), api, cmd.InOrStdin(), cmd.OutOrStdout(), email, authflow.DefaultPacing)
			if err != nil {
				return err
			}
			if err := saveToken(ctx.tokenFile, session.AccessToken); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in. Token saved to %s\n", ctx.tokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when empty)")
	return cmd
}

type toastPrinter struct {
	out io.Writer
}

func (p toastPrinter) Toast(t authflow.Toast) {
	tag := "info"
	switch t.Kind {
	case authflow.ToastSuccess:
		tag = "ok"
	case authflow.ToastError:
		tag = "error"
	}
	fmt.Fprintf(p.out, "[%s] %s: %s\n", tag, t.Title, t.Message)
}

var errInputClosed = errors.New("input closed before sign-in finished")

// runLogin drives the sign-in wizard from line-oriented input until a
// session is minted.
func runLogin(ctx context.Context, api authflow.API, in io.Reader, out io.Writer, email string, pacing authflow.Pacing) (*client.Session, error) {
	ctl := authflow.New(authflow.Config{API: api, Notifier: toastPrinter{out: out}, Pacing: pacing})
	scanner := bufio.NewScanner(in)
	prompt := func(label string) (string, error) {
		fmt.Fprint(out, label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errInputClosed
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch ctl.Step() {
		case authflow.StepSuccess:
			return ctl.Session(), nil
		case authflow.StepEmail:
			if email == "" {
				if email, err = prompt("Email: "); err != nil {
					return nil, err
				}
			}
			err = ctl.SubmitEmail(ctx, email)
			email = ""
		case authflow.StepCode:
			var line string
			if line, err = prompt("Code from email (r to resend, b to go back): "); err != nil {
				return nil, err
			}
			switch line {
			case "r":
				err = ctl.Resend(ctx)
			case "b":
				err = ctl.Back()
			default:
				err = submitCode(ctx, ctl, out, line)
			}
		case authflow.StepTwoFactor:
			var line string
			if line, err = prompt("Authenticator code (u for a backup code, b to go back): "); err != nil {
				return nil, err
			}
			switch line {
			case "u":
				err = ctl.UseBackupCode()
			case "b":
				err = ctl.Back()
			default:
				err = submitCode(ctx, ctl, out, line)
			}
		case authflow.StepBackupCode:
			var line string
			if line, err = prompt("Backup code (t for the authenticator, b to go back): "); err != nil {
				return nil, err
			}
			switch line {
			case "t":
				err = ctl.BackToTwoFactor()
			case "b":
				err = ctl.Back()
			default:
				ctl.SetBackupCode(line)
				err = ctl.SubmitBackupCode(ctx)
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// submitCode pastes line into the active code. Anything that is not six
// digits, optionally separated, is answered with a hint.
func submitCode(ctx context.Context, ctl *authflow.Controller, out io.Writer, line string) error {
	if !looksLikeCode(line) {
		fmt.Fprintln(out, "Enter the 6-digit code.")
		return nil
	}
	return ctl.Paste(ctx, line)
}

func looksLikeCode(s string) bool {
	n := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			n++
		case r == '-' || r == ' ' || r == '\t':
		default:
			return false
		}
	}
	return n == 6
}
