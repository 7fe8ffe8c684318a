package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/budgetbuddy/internal/category"
	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect expense categories",
		Long:  `List the canonical categories, or write them to a YAML file for editing.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(resolveCategoryCmd())
	cmd.AddCommand(initCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories and their synonyms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListCategories(cmd.OutOrStdout(), settings)
		},
	}
}

func resolveCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <word>",
		Short: "Show which category a word resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolveCategory(cmd.OutOrStdout(), settings, args[0])
		},
	}
}

func initCategoriesCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the current categories to a YAML file",
		Long: `Write the active category list and synonyms to a YAML file. Point
categories.file at it to customize the set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.DefaultDir(), "categories.yaml")
			if len(args) == 1 {
				path = config.ExpandPath(args[0])
			}
			return runInitCategories(cmd.OutOrStdout(), settings, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func runListCategories(out io.Writer, s config.Settings) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n",
		cli.TableHeaderStyle.Render("Category"),
		cli.TableHeaderStyle.Render("Synonyms"))

	for _, name := range s.Categories.Names {
		synonyms := strings.Join(s.Categories.Synonyms[name], ", ")
		if synonyms == "" {
			synonyms = cli.SubtleStyle.Render("-")
		}
		fmt.Fprintf(w, "%s\t%s\n", name, synonyms)
	}
	return w.Flush()
}

func runResolveCategory(out io.Writer, s config.Settings, word string) error {
	resolver, err := category.NewResolver(s.ResolverConfig())
	if err != nil {
		return err
	}

	resolved := resolver.Resolve(word)
	if resolved.Resolved() {
		_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%q → %s (%s)", word, resolved.Canonical, resolved.Kind)))
		return err
	}
	_, err = fmt.Fprintln(out, cli.FormatQuestion(fmt.Sprintf("%q is ambiguous; options: %s", word, strings.Join(resolved.Options, ", "))))
	return err
}

func runInitCategories(out io.Writer, s config.Settings, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}

	err := config.WriteCategoriesFile(path, config.CategoriesFile{
		Categories: s.Categories.Names,
		Synonyms:   s.Categories.Synonyms,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess("Wrote "+path))
	return err
}
