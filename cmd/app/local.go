package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/kdoc/internal/kdoc"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check KDOC files against the v1 rules",
		ArgsUsage: "FILE...",
		Action: func(_ context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return cli.Exit("validate: at least one file is required", 2)
			}
			failed := 0
			for _, path := range files {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res := kdoc.Validate(string(raw))
				if res.OK {
					fmt.Printf("OK   %s\n", path)
					continue
				}
				failed++
				fmt.Printf("FAIL %s\n", path)
				for _, msg := range res.Errors {
					fmt.Printf("     - %s\n", msg)
				}
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files failed validation", failed, len(files)), 1)
			}
			return nil
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:      "template",
		Usage:     "Print a document skeleton",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Usage: "List template keys"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Bool("list") || cmd.Args().Len() == 0 {
				for _, key := range kdoc.TemplateKeys() {
					fmt.Println(key)
				}
				return nil
			}
			now := time.Now()
			key := cmd.Args().First()
			text, err := kdoc.Template(key, now)
			if err != nil {
				return err
			}
			if key != kdoc.SynonymsTemplate {
				fmt.Fprintf(os.Stderr, "suggested name: %s\n", kdoc.SuggestName(key, now))
			}
			fmt.Println(text)
			return nil
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Wrap a free-text file into a KDOC skeleton",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to `FILE` instead of stdout"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("convert: a file is required", 2)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text := string(raw)
			if _, ok := kdoc.Parse(text); ok {
				fmt.Fprintf(os.Stderr, "%s is already KDOC\n", filepath.Base(path))
			} else {
				text = kdoc.FromFreeText(text, time.Now())
			}
			if out := cmd.String("out"); out != "" {
				return writeFile(out, []byte(strings.TrimRight(text, "\n")+"\n"))
			}
			fmt.Println(text)
			return nil
		},
	}
}
