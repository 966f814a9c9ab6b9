package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"collectorkit/internal/application"
	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/export"
	"collectorkit/internal/infrastructure/database"
)

type pageFlags struct {
	limit  int
	offset int
}

func (f *pageFlags) add(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size (defaults to DEFAULT_PAGE_SIZE)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "number of rows to skip")
}

func (f pageFlags) page() entities.Page {
	return entities.Page{Limit: f.limit, Offset: f.offset}
}

type scopeFlags struct {
	customer int64
	site     int64
}

func (f *scopeFlags) add(cmd *cobra.Command, withSite bool) {
	cmd.Flags().Int64Var(&f.customer, "customer", 0, "restrict to a customer id")
	if withSite {
		cmd.Flags().Int64Var(&f.site, "site", 0, "restrict to a site id")
	}
}

func (f scopeFlags) scope() entities.Scope {
	return entities.Scope{}.WithCustomer(f.customer).WithSite(f.site)
}

// withDirectory opens the directory for the duration of fn.
func (a *App) withDirectory(ctx context.Context, fn func(*application.DirectoryService) error) error {
	svc, db, err := a.openDirectory(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(svc)
}

func (a *App) directoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "directory",
		Aliases: []string{"dir"},
		Short:   "Browse and edit the customer, site and device directory",
		Long: `Browse and edit the customer, site and device directory.

The directory lives in DATABASE_URL. Without one it is kept in
collectorkit/directory.db under the user configuration directory, so
entries survive between commands.`,
	}
	cmd.AddCommand(
		a.migrateCmd(),
		a.customersCmd(),
		a.sitesCmd(),
		a.devicesCmd(),
		a.addCustomerCmd(),
		a.addSiteCmd(),
		a.addDeviceCmd(),
		a.deviceStateCmd("enable", true),
		a.deviceStateCmd("disable", false),
		a.exportCmd(),
	)
	return cmd
}

func (a *App) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending directory migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, _, err := a.databaseURL()
			if err != nil {
				return err
			}
			db, err := database.GetDatabaseConnection(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.RunMigrations(db); err != nil {
				return err
			}
			a.print().Success("migrations applied")
			return nil
		},
	}
}

func (a *App) customersCmd() *cobra.Command {
	var pf pageFlags
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers with their device counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				customers, err := svc.Customers(cmd.Context(), pf.page())
				if err != nil {
					return err
				}
				l := a.labeler(cmd.Context())
				rows := [][]string{{"ID", l("Name"), l("Devices"), l("Active"), l("Inactive")}}
				for _, c := range customers {
					rows = append(rows, []string{id(c.ID), c.Name, strconv.Itoa(c.DeviceCount), strconv.Itoa(c.ActiveDevices), strconv.Itoa(c.InactiveDevices)})
				}
				a.print().Table(rows)
				return nil
			})
		},
	}
	pf.add(cmd)
	return cmd
}

func (a *App) sitesCmd() *cobra.Command {
	var (
		pf pageFlags
		sf scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				sites, err := svc.Scoped(sf.scope()).Sites(cmd.Context(), pf.page())
				if err != nil {
					return err
				}
				l := a.labeler(cmd.Context())
				rows := [][]string{{"ID", l("Customer"), l("Name")}}
				for _, s := range sites {
					rows = append(rows, []string{id(s.ID), id(s.CustomerID), s.Name})
				}
				a.print().Table(rows)
				return nil
			})
		},
	}
	pf.add(cmd)
	sf.add(cmd, false)
	return cmd
}

func (a *App) devicesCmd() *cobra.Command {
	var (
		pf pageFlags
		sf scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				devices, err := svc.Scoped(sf.scope()).Devices(cmd.Context(), pf.page())
				if err != nil {
					return err
				}
				l := a.labeler(cmd.Context())
				rows := [][]string{{"ID", l("Customer"), l("Site"), l("Name"), l("Serial"), l("Active")}}
				for _, d := range devices {
					active := l("No")
					if d.Active {
						active = l("Yes")
					}
					rows = append(rows, []string{id(d.ID), id(d.CustomerID), id(d.SiteID), d.Name, d.Serial, active})
				}
				a.print().Table(rows)
				return nil
			})
		},
	}
	pf.add(cmd)
	sf.add(cmd, true)
	return cmd
}

func (a *App) addCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-customer NAME",
		Short: "Create a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				c, err := svc.CreateCustomer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.print().Success(fmt.Sprintf("customer %d created", c.ID))
				return nil
			})
		},
	}
}

func (a *App) addSiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-site CUSTOMER_ID NAME",
		Short: "Create a site under a customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID("customer", args[0])
			if err != nil {
				return err
			}
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				s, err := svc.CreateSite(cmd.Context(), customerID, args[1])
				if err != nil {
					return err
				}
				a.print().Success(fmt.Sprintf("site %d created", s.ID))
				return nil
			})
		},
	}
}

func (a *App) addDeviceCmd() *cobra.Command {
	var serial string
	cmd := &cobra.Command{
		Use:   "add-device SITE_ID NAME",
		Short: "Create an active device on a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site", args[0])
			if err != nil {
				return err
			}
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				d, err := svc.CreateDevice(cmd.Context(), siteID, args[1], serial)
				if err != nil {
					return err
				}
				a.print().Success(fmt.Sprintf("device %d created", d.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&serial, "serial", "", "device serial number")
	return cmd
}

func (a *App) deviceStateCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " DEVICE_ID",
		Short: verb + " a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, err := parseID("device", args[0])
			if err != nil {
				return err
			}
			return a.withDirectory(cmd.Context(), func(svc *application.DirectoryService) error {
				if err := svc.SetDeviceActive(cmd.Context(), deviceID, active); err != nil {
					return err
				}
				a.print().Success(fmt.Sprintf("device %d %sd", deviceID, verb))
				return nil
			})
		},
	}
}

func (a *App) exportCmd() *cobra.Command {
	var (
		sf     scopeFlags
		output string
		kind   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export customers and devices as xlsx, csv or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return domain.Wrap("export", domain.ErrValidationFailed, fmt.Errorf("--output is required"))
			}
			ctx := cmd.Context()
			return a.withDirectory(ctx, func(svc *application.DirectoryService) error {
				report, err := a.collectReport(ctx, svc, sf.scope())
				if err != nil {
					return err
				}

				var buf bytes.Buffer
				labels := export.Labeler(a.labeler(ctx))
				switch kind {
				case "xlsx":
					err = export.XLSX(&buf, report, labels)
				case "csv":
					err = export.DevicesCSV(&buf, report.Devices, labels)
				case "pdf":
					err = export.PDF(&buf, report, labels)
				default:
					err = domain.Wrap("export", domain.ErrValidationFailed, fmt.Errorf("unknown format %q (xlsx, csv or pdf)", kind))
				}
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("export: write %s: %w", output, err)
				}
				a.print().Success(fmt.Sprintf("%d customers, %d devices written to %s", len(report.Customers), len(report.Devices), output))
				return nil
			})
		},
	}
	sf.add(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")
	cmd.Flags().StringVarP(&kind, "format", "f", "xlsx", "xlsx, csv or pdf")
	return cmd
}

// collectReport pages through the whole scoped directory.
func (a *App) collectReport(ctx context.Context, svc *application.DirectoryService, scope entities.Scope) (export.Report, error) {
	report := export.Report{GeneratedAt: time.Now()}
	page := entities.Page{Limit: a.cfg.MaxPageSize}

	if scope.CustomerID != 0 {
		c, err := svc.Customer(ctx, scope.CustomerID)
		if err != nil {
			return report, err
		}
		if c != nil {
			report.Customers = append(report.Customers, *c)
		}
	} else {
		for p := page; ; p.Offset += p.Limit {
			batch, err := svc.Customers(ctx, p)
			if err != nil {
				return report, err
			}
			report.Customers = append(report.Customers, batch...)
			if len(batch) < p.Limit {
				break
			}
		}
	}

	scoped := svc.Scoped(scope)
	for p := page; ; p.Offset += p.Limit {
		batch, err := scoped.Devices(ctx, p)
		if err != nil {
			return report, err
		}
		report.Devices = append(report.Devices, batch...)
		if len(batch) < p.Limit {
			break
		}
	}
	return report, nil
}

// labeler translates column headers into the output language.
func (a *App) labeler(ctx context.Context) func(string) string {
	return func(text string) string {
		out, err := a.tr.Translate(ctx, text, "")
		if err != nil {
			return text
		}
		return out
	}
}

func id(v int64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func parseID(what, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.Wrap("parse "+what+" id", domain.ErrValidationFailed, fmt.Errorf("%q is not a positive integer", s))
	}
	return n, nil
}
