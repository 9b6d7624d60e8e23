package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/creator-studio/internal/client"
	"github.com/spf13/cobra"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var (
		req       client.PublishRequest
		thumbnail string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an uploaded video to the connected YouTube channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			if thumbnail != "" {
				if req.ThumbnailBase64, err = readBase64(thumbnail); err != nil {
					return err
				}
			}
			res, err := api.Publish(cmd.Context(), req)
			if client.IsStatus(err, http.StatusConflict) {
				return errors.New("this video is already on the connected channel")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published to %s: %s\n", res.ChannelTitle, res.YouTubeURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.VideoID, "video", "", "Video ID returned by upload")
	cmd.Flags().StringVar(&req.Title, "title", "", "YouTube title")
	cmd.Flags().StringVar(&req.Description, "description", "", "YouTube description")
	cmd.Flags().StringVar(&req.PrivacyStatus, "privacy", "private", "private, unlisted or public")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "Image file to set as the thumbnail")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var (
		videoID   string
		title     string
		thumbnail string
	)
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Save the chosen title and thumbnail for a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			var encoded string
			if thumbnail != "" {
				if encoded, err = readBase64(thumbnail); err != nil {
					return err
				}
			}
			if err := api.UpdateVideo(cmd.Context(), videoID, title, encoded); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&videoID, "video", "", "Video ID returned by upload")
	cmd.Flags().StringVar(&title, "title", "", "Chosen title")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "Chosen thumbnail image file")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

func readBase64(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
