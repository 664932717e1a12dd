package scripts

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"content-dumper/internal/exporter"
	"content-dumper/internal/shared/content"
)

func (r *runner) fetchCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fetch [domain...]",
		Short: "Write pending rows as markdown and mark them exported",
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := parseDomains(args)
			if err != nil {
				return err
			}
			userID, err := r.userID(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = r.deps.ExportDir
			}
			report, err := r.deps.Exporter.Fetch(cmd.Context(), userID, out, domains)
			if err != nil {
				return err
			}
			r.printReport(report)
			r.printer.Success("exported %d rows to %s", report.Moved(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default EXPORT_DIR)")
	return cmd
}

func (r *runner) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [domain...]",
		Short: "Move the latest export batch back to unexported",
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := parseDomains(args)
			if err != nil {
				return err
			}
			userID, err := r.userID(cmd.Context())
			if err != nil {
				return err
			}
			report, err := r.deps.Exporter.Reset(cmd.Context(), userID, domains)
			if err != nil {
				return err
			}
			if report.At.IsZero() {
				r.printer.Info("nothing has been exported")
				return nil
			}
			r.printReport(report)
			r.printer.Success("reset %d rows from batch %s", report.Moved(), report.At.Format("2006-01-02T15:04:05.000000Z"))
			return nil
		},
	}
}

func (r *runner) revertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <domain> <id...>",
		Short: "Flag exported rows for re-export",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := content.ParseDomain(args[0])
			if err != nil {
				return err
			}
			userID, err := r.userID(cmd.Context())
			if err != nil {
				return err
			}
			n, err := r.deps.Exporter.Revert(cmd.Context(), userID, d, args[1:])
			if err != nil {
				return err
			}
			if skipped := len(args[1:]) - int(n); skipped > 0 {
				r.printer.Warning("%d of the given ids were not exported", skipped)
			}
			r.printer.Success("reverted %d %s", n, d)
			return nil
		},
	}
}

func (r *runner) updateCmd() *cobra.Command {
	var from, to string
	var ids []string
	cmd := &cobra.Command{
		Use:   "update <domain> --from STATUS --to STATUS [--id ID...]",
		Short: "Apply a guarded bulk status change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := content.ParseDomain(args[0])
			if err != nil {
				return err
			}
			fromStatus, err := content.ParseStatus(from)
			if err != nil {
				return err
			}
			toStatus, err := content.ParseStatus(to)
			if err != nil {
				return err
			}
			userID, err := r.userID(cmd.Context())
			if err != nil {
				return err
			}
			n, err := r.deps.Exporter.Update(cmd.Context(), userID, d, fromStatus, toStatus, ids)
			if err != nil {
				return err
			}
			r.printer.Success("moved %d %s from %s to %s", n, d, fromStatus, toStatus)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "current status")
	cmd.Flags().StringVar(&to, "to", "", "target status")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "restrict to these ids")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (r *runner) ragCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "rag [domain...]",
		Short: "Write exported notes, books and articles for retrieval ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := parseDomains(args)
			if err != nil {
				return err
			}
			userID, err := r.userID(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(r.deps.ExportDir, "rag")
			}
			m, err := r.deps.Exporter.RAG(cmd.Context(), userID, out, domains)
			if err != nil {
				return err
			}
			r.printer.Success("wrote %d documents and %s to %s", m.Count, exporter.ManifestFile, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default EXPORT_DIR/rag)")
	return cmd
}

func (r *runner) utilCmd() *cobra.Command {
	util := &cobra.Command{
		Use:   "util",
		Short: "Maintenance helpers",
	}
	util.AddCommand(
		&cobra.Command{
			Use:   "categories",
			Short: "List categories",
			RunE: func(cmd *cobra.Command, _ []string) error {
				userID, err := r.userID(cmd.Context())
				if err != nil {
					return err
				}
				list, err := r.deps.Categories.List(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					r.printer.Info("no categories")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, c := range list {
					rows = append(rows, []string{c.ID, c.Name, c.CreatedAt.Format("2006-01-02")})
				}
				return r.printer.Table([]string{"ID", "NAME", "CREATED"}, rows)
			},
		},
		&cobra.Command{
			Use:   "thumbnails",
			Short: "Generate missing image thumbnails",
			RunE: func(cmd *cobra.Command, _ []string) error {
				userID, err := r.userID(cmd.Context())
				if err != nil {
					return err
				}
				n, err := r.deps.Images.RegenerateThumbnails(cmd.Context(), userID)
				if err != nil {
					return err
				}
				r.printer.Success("generated %d thumbnails", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Count rows per domain and status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				userID, err := r.userID(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := r.deps.Exporter.Stats(cmd.Context(), userID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{string(s.Domain), string(s.Status), strconv.FormatInt(s.Count, 10)})
				}
				return r.printer.Table([]string{"DOMAIN", "STATUS", "COUNT"}, rows)
			},
		},
	)
	return util
}

func (r *runner) printReport(report exporter.Report) {
	for _, d := range report.Domains {
		line := fmt.Sprintf("%-10s moved %d", d.Domain, d.Moved)
		if d.Written > 0 {
			line += fmt.Sprintf(", wrote %d", d.Written)
		}
		if d.Failed > 0 {
			r.printer.Warning("%s, %d failed", line, d.Failed)
			continue
		}
		r.printer.Info("%s", line)
	}
}
