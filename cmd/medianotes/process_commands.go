package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <url>",
		Short: "Fetch media for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Download(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("download: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			fmt.Fprintf(out, "Video ID: %s\n", resp.VideoID)
			return nil
		},
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <video-id>",
		Short: "Transcribe fetched media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Transcribe(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			fmt.Fprintf(out, "Transcript ID: %s\n\n", resp.TranscriptID)
			fmt.Fprintln(out, resp.TranscriptText)
			return nil
		},
	}
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "generate <transcript-id>",
		Short: "Generate markdown notes from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Generate(cmd.Context(), args[0], model)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model: %s\n\n", resp.ModelUsed)
			fmt.Fprintln(out, resp.MarkdownContent)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "LLM model to use (defaults to the configured model)")
	return cmd
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local media file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open media file: %w", err)
			}
			defer file.Close()

			resp, err := ctx.client().Upload(cmd.Context(), file)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File ID: %s\n", resp.FileID)
			fmt.Fprintln(out, `Use this id as the "file" source value when processing.`)
			return nil
		},
	}
}
