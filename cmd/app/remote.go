package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"

	"github.com/starford/kdoc/internal/client"
	"github.com/starford/kdoc/internal/console"
	"github.com/starford/kdoc/internal/localstore"
	"github.com/starford/kdoc/internal/organize"
)

func writeFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printStatus(s console.Status) {
	switch s.Tone {
	case console.ToneLoading:
		fmt.Fprintf(os.Stderr, "... %s\n", s.Message)
	case console.ToneWarn:
		fmt.Fprintf(os.Stderr, "!   %s\n", s.Message)
	default:
		fmt.Fprintf(os.Stderr, "    %s\n", s.Message)
	}
}

// openSession boots a console session against the configured host with the
// operator state kept in the console state directory.
func openSession(ctx context.Context, cmd *cli.Command) (*console.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	kv, err := localstore.NewFS(cfg.Console.StateDir)
	if err != nil {
		return nil, err
	}
	remote := client.New(cfg.Console.BaseURL,
		client.WithToken(cfg.Console.Token),
		client.WithTimeout(cfg.Console.Timeout),
		client.WithRetryPolicy(cfg.Console.RetryPolicy()),
	)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	sess := console.New(remote, kv, console.Options{
		Notifier:      console.NotifierFunc(printStatus),
		Logger:        logger,
		AutosaveDelay: cfg.Console.AutosaveDelay,
		MaxImageBytes: cfg.Images.MaxBytes(),
	})
	if err := sess.Boot(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// withSession runs fn with a booted session and closes it afterwards.
func withSession(fn func(ctx context.Context, cmd *cli.Command, sess *console.Session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		sess, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer sess.Close()
		return fn(ctx, cmd, sess)
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Validate and save local files to the host",
		ArgsUsage: "GLOB...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Usage: "Assign pushed documents to `FOLDER`"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
			var files []string
			for _, pattern := range cmd.Args().Slice() {
				matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
				if err != nil {
					return fmt.Errorf("pattern %q: %w", pattern, err)
				}
				files = append(files, matches...)
			}
			if len(files) == 0 {
				return cli.Exit("push: no files matched", 2)
			}

			failed := 0
			for _, path := range files {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := sess.New(); err != nil {
					return err
				}
				if folder := cmd.String("folder"); folder != "" {
					if err := sess.SetFolderChoice(folder); err != nil {
						return err
					}
				}
				if err := sess.OpenFreeText(filepath.Base(path), string(raw)); err != nil {
					return err
				}
				if err := sess.Save(ctx); err != nil {
					failed++
				}
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files were not saved", failed, len(files)), 1)
			}
			return nil
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every document and the organization state to a bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Bundle `FILE` (default: timestamped name)"},
			&cli.BoolFlag{Name: "images", Usage: "Inline image data"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
			data, name, err := sess.Export(ctx, cmd.Bool("images"))
			if err != nil {
				return err
			}
			if out := cmd.String("out"); out != "" {
				name = out
			}
			if err := writeFile(name, data); err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace every document on the host with a bundle",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "images", Value: true, Usage: "Import inlined images"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deleting the current documents"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("import: a bundle file is required", 2)
			}
			if !cmd.Bool("yes") {
				return cli.Exit("import deletes every document on the host; pass --yes to continue", 2)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			res, err := sess.Import(ctx, raw, cmd.Bool("images"))
			if err != nil {
				return err
			}
			fmt.Printf("documents: %d\nimages: %d\nskipped images: %d\n", res.Documents, res.Images, res.SkippedImages)
			return nil
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank documents for a query",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Value: 5, Usage: "Number of results (1-10)"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			results, err := sess.Search(ctx, query, int(cmd.Int("top-k")))
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Printf("%2d. %-32s %6.2f  %s\n", i+1, r.Name, r.Score, r.Title)
				if len(r.FieldHits) > 0 {
					fmt.Printf("    fields: %s\n", strings.Join(r.FieldHits, ", "))
				}
				if r.Snippet != "" {
					fmt.Printf("    %s\n", r.Snippet)
				}
			}
			return nil
		}),
	}
}

func foldersCommand() *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "List and manage folders",
		Action: withSession(func(_ context.Context, _ *cli.Command, sess *console.Session) error {
			org := sess.Organization()
			var names []string
			for _, e := range sess.Documents(console.Filter{Folder: organize.AllKey}) {
				names = append(names, e.Name)
			}
			for _, f := range org.Folders() {
				fmt.Printf("%-32s %d\n", f, org.CountIn(f, names))
			}
			return nil
		}),
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "NAME",
				Action: withSession(func(_ context.Context, cmd *cli.Command, sess *console.Session) error {
					_, err := sess.AddFolder(strings.Join(cmd.Args().Slice(), " "))
					return err
				}),
			},
			{
				Name:      "remove",
				ArgsUsage: "NAME",
				Action: withSession(func(_ context.Context, cmd *cli.Command, sess *console.Session) error {
					_, err := sess.RemoveFolder(strings.Join(cmd.Args().Slice(), " "))
					return err
				}),
			},
			{
				Name:      "assign",
				Usage:     "Move a document to a folder",
				ArgsUsage: "DOC FOLDER",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
					if cmd.Args().Len() < 2 {
						return cli.Exit("assign: DOC and FOLDER are required", 2)
					}
					if err := sess.Open(ctx, cmd.Args().Get(0)); err != nil {
						return err
					}
					return sess.SetFolderChoice(strings.Join(cmd.Args().Tail(), " "))
				}),
			},
		},
	}
}

func tagsCommand() *cli.Command {
	tagAction := func(apply func(sess *console.Session, args []string) ([]string, error), want int) cli.ActionFunc {
		return withSession(func(ctx context.Context, cmd *cli.Command, sess *console.Session) error {
			args := cmd.Args().Slice()
			if len(args) < want {
				return cli.Exit(fmt.Sprintf("%s: %d arguments required", cmd.Name, want), 2)
			}
			if err := sess.Open(ctx, args[0]); err != nil {
				return err
			}
			tags, err := apply(sess, args[1:])
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(tags, ", "))
			return nil
		})
	}

	return &cli.Command{
		Name:      "tags",
		Usage:     "Show and edit the tags of a document",
		ArgsUsage: "DOC",
		Action: tagAction(func(sess *console.Session, _ []string) ([]string, error) {
			return sess.Tags(), nil
		}, 1),
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "DOC TAG",
				Action: tagAction(func(sess *console.Session, args []string) ([]string, error) {
					return sess.AddTag(strings.Join(args, " "))
				}, 2),
			},
			{
				Name:      "rename",
				ArgsUsage: "DOC OLD NEW",
				Action: tagAction(func(sess *console.Session, args []string) ([]string, error) {
					return sess.RenameTag(args[0], strings.Join(args[1:], " "))
				}, 3),
			},
			{
				Name:      "remove",
				ArgsUsage: "DOC TAG",
				Action: tagAction(func(sess *console.Session, args []string) ([]string, error) {
					return sess.RemoveTag(strings.Join(args, " "))
				}, 2),
			},
		},
	}
}
