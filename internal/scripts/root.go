// Package scripts is the operator CLI: fetch, reset, revert, update, rag and util.
package scripts

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"content-dumper/internal/categories"
	"content-dumper/internal/exporter"
	"content-dumper/internal/shared/content"
)

// CategoryLister lists a user's categories.
type CategoryLister interface {
	List(ctx context.Context, userID string) ([]categories.Category, error)
}

// ThumbnailRegenerator rebuilds missing image thumbnails.
type ThumbnailRegenerator interface {
	RegenerateThumbnails(ctx context.Context, userID string) (int, error)
}

// Deps is what the commands operate on. It is built lazily so --help never
// touches the database.
type Deps struct {
	Exporter    *exporter.Exporter
	Users       exporter.UserResolver
	Categories  CategoryLister
	Images      ThumbnailRegenerator
	DefaultUser string
	ExportDir   string
}

// Loader builds Deps for a run.
type Loader func(ctx context.Context) (*Deps, error)

type runner struct {
	load    Loader
	deps    *Deps
	printer *Printer
	user    string
	noColor bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(load Loader) *cobra.Command {
	r := &runner{load: load}
	root := &cobra.Command{
		Use:   "scripts",
		Short: "Export and maintenance commands for content-dumper",
		Long: `scripts moves dumped content into an exported markdown tree and back.

Example usage:
  scripts fetch                      # export every pending row
  scripts fetch notes books --out ./vault
  scripts reset                      # undo the latest export batch
  scripts revert notes <id>          # flag an exported note for re-export
  scripts update articles --from exported --to unexported
  scripts rag --out ./rag
  scripts util stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			r.printer = NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), resolveColors(r.noColor))
			deps, err := r.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading dependencies: %w", err)
			}
			r.deps = deps
			return nil
		},
	}
	root.PersistentFlags().StringVar(&r.user, "user", "", "user email or id (default EXPORT_USERNAME)")
	root.PersistentFlags().BoolVar(&r.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		r.fetchCmd(),
		r.resetCmd(),
		r.revertCmd(),
		r.updateCmd(),
		r.ragCmd(),
		r.utilCmd(),
	)
	return root
}

// Execute runs the CLI and prints any error.
func Execute(ctx context.Context, load Loader) error {
	root := NewRootCmd(load)
	err := root.ExecuteContext(ctx)
	if err != nil {
		NewPrinter(root.OutOrStdout(), root.ErrOrStderr(), resolveColors(false)).Error("%v", err)
	}
	return err
}

func (r *runner) userID(ctx context.Context) (string, error) {
	ref := r.user
	if ref == "" {
		ref = r.deps.DefaultUser
	}
	if ref == "" {
		return "", errors.New("no user given: pass --user or set EXPORT_USERNAME")
	}
	u, err := r.deps.Users.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve user %q: %w", ref, err)
	}
	return u.ID, nil
}

func parseDomains(args []string) ([]content.Domain, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return content.ParseExportDomains(args)
}
