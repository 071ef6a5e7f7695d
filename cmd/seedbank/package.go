package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/seedbank/internal/packaging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCreatePackageCmd() *cobra.Command {
	var (
		title, description, curriculum, subject, output string
		files                                           []string
	)
	cmd := &cobra.Command{
		Use:   "create-package",
		Short: "Create a new educational content package (.seed bundle)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pkg := packaging.NewSystem().CreatePackage(title, description, curriculum, subject)
			for _, arg := range files {
				src, dst := splitFileArg(arg)
				if err := pkg.AddFile(src, dst); err != nil {
					return err
				}
			}
			path, err := pkg.Save(output)
			if err != nil {
				return fmt.Errorf("create package: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Package created successfully: %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", pkg.Metadata().ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "title of the educational content")
	flags.StringVar(&description, "description", "", "description of the content")
	flags.StringVar(&curriculum, "curriculum", "", "regional curriculum")
	flags.StringVar(&subject, "subject", "", "educational subject")
	flags.StringVar(&output, "output", "", "output path for the seed package (.seed is appended)")
	flags.StringArrayVar(&files, "file", nil, "file to include as src[=dst] (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func splitFileArg(arg string) (string, string) {
	src, dst, _ := strings.Cut(arg, "=")
	return strings.TrimSpace(src), strings.TrimSpace(dst)
}
