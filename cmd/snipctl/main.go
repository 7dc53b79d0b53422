package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/snippet"
)

const version = "0.3.0"

var timeoutMS int

func main() {
	root := &cobra.Command{
		Use:   "snipctl",
		Short: "Run and inspect playground snippets locally",
	}
	root.PersistentFlags().IntVar(&timeoutMS, "timeout", 5000, "execution timeout in milliseconds")

	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(catalogCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEvaluator builds a single-runtime evaluator for one-shot CLI use.
func newEvaluator() (*snippet.Evaluator, *sandbox.Pool, error) {
	cfg := sandbox.DefaultConfig()
	cfg.Timeout = time.Duration(timeoutMS) * time.Millisecond

	pool, err := sandbox.NewPool(cfg, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("create runtime: %w", err)
	}
	return snippet.New(pool, nil), pool, nil
}

// readSource loads snippet text from a file path, or stdin for "-".
func readSource(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Evaluate a snippet and print its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			evaluator, pool, err := newEvaluator()
			if err != nil {
				return err
			}
			defer pool.Close()

			output := evaluator.Evaluate(cmd.Context(), source)
			if output != "" {
				fmt.Println(output)
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Compile a snippet without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			evaluator, pool, err := newEvaluator()
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := evaluator.Check(source); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func catalogCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{Use: "catalog", Short: "Browse a local snippet catalog"}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./catalog", "catalog directory")

	cmd.AddCommand(catalogListCmd(&dir))
	cmd.AddCommand(catalogShowCmd(&dir))
	cmd.AddCommand(catalogRunCmd(&dir))
	return cmd
}

// loadCatalog seeds a manager from the given directory, syntax-checking
// every snippet on the way in.
func loadCatalog(ctx context.Context, dir string, check catalog.CheckFunc) (*catalog.Manager, error) {
	manager := catalog.NewManager(dir, 0, nil)
	seeder := catalog.NewSeeder(manager, dir, check, nil)
	if err := seeder.Seed(ctx); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return manager, nil
}

func catalogListCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snippet packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator, pool, err := newEvaluator()
			if err != nil {
				return err
			}
			defer pool.Close()

			manager, err := loadCatalog(cmd.Context(), *dir, evaluator.Check)
			if err != nil {
				return err
			}

			packs := manager.ListMetadata(nil)
			if len(packs) == 0 {
				fmt.Println("no packs found")
				return nil
			}
			for _, p := range packs {
				fmt.Printf("%-20s %-30s %2d snippets  [%s]\n", p.ID, p.Title, p.SnippetCount, p.Topic)
			}
			return nil
		},
	}
}

func catalogShowCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pack>",
		Short: "Show the snippets in one pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator, pool, err := newEvaluator()
			if err != nil {
				return err
			}
			defer pool.Close()

			manager, err := loadCatalog(cmd.Context(), *dir, evaluator.Check)
			if err != nil {
				return err
			}

			pack, err := manager.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s — %s\n", pack.ID, pack.Title)
			if pack.Description != "" {
				fmt.Println(pack.Description)
			}
			for _, s := range pack.Snippets {
				fmt.Printf("\n  %s/%s  %s\n", pack.ID, s.ID, s.Title)
				if s.Note != "" {
					fmt.Printf("    %s\n", s.Note)
				}
			}
			return nil
		},
	}
}

func catalogRunCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pack/snippet>",
		Short: "Run one cataloged snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator, pool, err := newEvaluator()
			if err != nil {
				return err
			}
			defer pool.Close()

			manager, err := loadCatalog(cmd.Context(), *dir, evaluator.Check)
			if err != nil {
				return err
			}

			snip, _, err := manager.GetSnippet(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			output := evaluator.Evaluate(cmd.Context(), snip.Source)
			if output != "" {
				fmt.Println(output)
			}
			if snip.Expect != "" && output != snip.Expect {
				fmt.Fprintf(os.Stderr, "expected:\n%s\n", snip.Expect)
				os.Exit(1)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snipctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("snipctl " + version)
		},
	}
}
