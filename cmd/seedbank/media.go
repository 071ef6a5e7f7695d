package main

import (
	"fmt"
	"os"

	"github.com/danmuck/seedbank/internal/compression"
	"github.com/danmuck/seedbank/internal/htmlgen"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newCompressVideoCmd() *cobra.Command {
	var (
		input, output string
		size          int
	)
	cmd := &cobra.Command{
		Use:   "compress-video",
		Short: "Compress a video for low bandwidth transmission",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := compression.NewCompressor(nil)
			if err := c.Compress(cmd.Context(), input, output, size); err != nil {
				return fmt.Errorf("compress video: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Video compressed successfully: %s\n", output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&input, "input", "", "path to input video file")
	flags.StringVar(&output, "output", "", "path for compressed video")
	flags.IntVar(&size, "size", compression.DefaultTargetSizeMB, "target size in MB")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCreateHTMLCmd() *cobra.Command {
	var (
		title, content, contentFile, exercisesFile, output string
	)
	cmd := &cobra.Command{
		Use:   "create-html",
		Short: "Create an interactive HTML lesson page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if contentFile != "" {
				raw, err := os.ReadFile(contentFile)
				if err != nil {
					return err
				}
				content = string(raw)
			}
			exercises, err := loadExercises(exercisesFile)
			if err != nil {
				return err
			}

			g := htmlgen.NewGenerator()
			page, err := g.CreateInteractivePage(title, content, exercises)
			if err != nil {
				return fmt.Errorf("create html: %w", err)
			}
			if err := g.SavePage(page, output); err != nil {
				return fmt.Errorf("create html: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "HTML page created successfully: %s\n", output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "page title")
	flags.StringVar(&content, "content", "", "main content (HTML)")
	flags.StringVar(&contentFile, "content-file", "", "read main content from this file")
	flags.StringVar(&exercisesFile, "exercises", "", "JSON file with a list of exercises")
	flags.StringVar(&output, "output", "", "output path for the HTML file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func loadExercises(path string) ([]htmlgen.Exercise, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []htmlgen.Exercise
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse exercises %s: %w", path, err)
	}
	return out, nil
}
