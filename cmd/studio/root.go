package main

import (
	"os"

	"github.com/creator-studio/internal/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:3000"

type commandContext struct {
	apiURL    string
	tokenFile string
}

// client returns an API client carrying the saved access token, if any.
func (c *commandContext) client() (*client.Client, error) {
	api := client.New(c.apiURL, nil)
	token, err := loadToken(c.tokenFile)
	if err != nil {
		return nil, err
	}
	api.SetToken(token)
	return api, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "Creator Studio command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if !cmd.Flags().Changed("api") {
				if v := os.Getenv("STUDIO_API_URL"); v != "" {
					ctx.apiURL = v
				}
			}
			if ctx.tokenFile == "" {
				path, err := defaultTokenPath()
				if err != nil {
					return err
				}
				ctx.tokenFile = path
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.apiURL, "api", defaultAPIURL, "Creator Studio API base URL")
	rootCmd.PersistentFlags().StringVar(&ctx.tokenFile, "token-file", "", "Where the access token is stored")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newMetadataCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))

	return rootCmd
}
