package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orgline/internal/auth"
	"orgline/internal/config"
	"orgline/internal/db"
	"orgline/internal/domain"
	"orgline/internal/engine"
	"orgline/internal/migrate"
	"orgline/internal/server"
	"orgline/internal/store/sqlstore"
)

var rootCmd = &cobra.Command{
	Use:   "oc",
	Short: "Orgline CLI",
	Long: `Orgline manages versioned organizational charts.
Core concepts:
- Workspace: your .orgline directory holding the database; company settings live in orgline.yml.
- Chart: one version of the org structure; drafts are fully editable, then submit -> approve freezes the structure.
- Department: a unit of the chart; creating one also creates its head position and a vacant appointment.
- Position: a seat inside a department with a code like FIN-001 and an optional salary band.
- Appointment: who sits in a position; vacant until filled, and the only part that stays editable after approval together with narrative texts.
- Event log: diary of changes, view with 'oc log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ORGLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(deptCmd())
	rootCmd.AddCommand(positionCmd())
	rootCmd.AddCommand(appointmentCmd())
	rootCmd.AddCommand(treeCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var companyID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default orgline.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(companyID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "acme", "company identifier")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printEntity(cfg)
		},
	}
	return cmd
}

// --- chart ---

func chartCmd() *cobra.Command {
	chart := &cobra.Command{
		Use:   "chart",
		Short: "Manage org charts",
		Long:  "Charts flow draft -> pending_approval -> approved -> revoked. Only drafts accept structural changes; approval freezes the version to N.0.",
	}
	chart.AddCommand(chartCreateCmd())
	chart.AddCommand(chartListCmd())
	chart.AddCommand(chartShowCmd())
	chart.AddCommand(chartUpdateCmd())
	chart.AddCommand(chartSubmitCmd())
	chart.AddCommand(chartApproveCmd())
	chart.AddCommand(chartReturnCmd())
	chart.AddCommand(chartRevokeCmd())
	return chart
}

func chartCreateCmd() *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := e.CreateOrgChart(ctx, engine.ChartCreateOptions{
					Company:     e.Config.Company.ID,
					Title:       title,
					Description: desc,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(c)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "chart title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func chartListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListOrgCharts(ctx, e.Config.Company.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Version", "Created"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Title, c.Status, c.Version, c.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func chartShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := e.GetOrgChart(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntity(c)
			})
		},
	}
	return cmd
}

func chartUpdateCmd() *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.ChartUpdateOptions{ActorID: viper.GetString("actor-id")}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				c, err := e.UpdateOrgChart(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printEntity(c)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "chart title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	return cmd
}

func chartTransitionCmd(use, short string, apply func(ctx context.Context, e *engine.Engine, id, actorID string) (domain.OrgChart, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := apply(ctx, e, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printEntity(c)
			})
		},
	}
}

func chartSubmitCmd() *cobra.Command {
	return chartTransitionCmd("submit", "Submit a draft for approval", func(ctx context.Context, e *engine.Engine, id, actor string) (domain.OrgChart, error) {
		return e.SubmitOrgChart(ctx, id, actor)
	})
}

func chartApproveCmd() *cobra.Command {
	return chartTransitionCmd("approve", "Approve a pending chart", func(ctx context.Context, e *engine.Engine, id, actor string) (domain.OrgChart, error) {
		return e.ApproveOrgChart(ctx, id, actor)
	})
}

func chartReturnCmd() *cobra.Command {
	return chartTransitionCmd("return", "Return a pending chart to draft", func(ctx context.Context, e *engine.Engine, id, actor string) (domain.OrgChart, error) {
		return e.ReturnOrgChartToDraft(ctx, id, actor)
	})
}

func chartRevokeCmd() *cobra.Command {
	return chartTransitionCmd("revoke", "Revoke an approved chart", func(ctx context.Context, e *engine.Engine, id, actor string) (domain.OrgChart, error) {
		return e.RevokeOrgChart(ctx, id, actor)
	})
}

// --- department ---

func deptCmd() *cobra.Command {
	dept := &cobra.Command{
		Use:   "dept",
		Short: "Manage departments",
		Long:  "Departments nest to any depth. Creating one also creates a head position and its vacant appointment in the same call.",
	}
	dept.AddCommand(deptCreateCmd())
	dept.AddCommand(deptShowCmd())
	dept.AddCommand(deptUpdateCmd())
	dept.AddCommand(deptDeleteCmd())
	return dept
}

func deptCreateCmd() *cobra.Command {
	var chartID, title, desc, code, parent string
	var headcount int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				b, err := e.CreateDepartment(ctx, engine.DepartmentCreateOptions{
					Company:            e.Config.Company.ID,
					OrgChartID:         chartID,
					Title:              title,
					Description:        desc,
					Code:               code,
					Headcount:          headcount,
					ParentDepartmentID: parent,
					ActorID:            viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(b)
			})
		},
	}
	cmd.Flags().StringVar(&chartID, "chart", "", "chart id")
	cmd.Flags().StringVar(&title, "title", "", "department title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&code, "code", "", "department code (derived when empty)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent department id")
	cmd.Flags().IntVar(&headcount, "headcount", 0, "headcount limit (0 uses the config default)")
	_ = cmd.MarkFlagRequired("chart")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func deptShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				d, err := e.GetDepartment(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntity(d)
			})
		},
	}
	return cmd
}

func deptUpdateCmd() *cobra.Command {
	var title, desc, code string
	var headcount int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.DepartmentUpdateOptions{ActorID: viper.GetString("actor-id")}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("code") {
					opts.Code = &code
				}
				if cmd.Flags().Changed("headcount") {
					opts.Headcount = &headcount
				}
				d, err := e.UpdateDepartment(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printEntity(d)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "department title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&code, "code", "", "department code")
	cmd.Flags().IntVar(&headcount, "headcount", 0, "headcount limit")
	return cmd
}

func deptDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a department with its whole subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeleteDepartment(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

// --- position ---

func positionCmd() *cobra.Command {
	pos := &cobra.Command{Use: "position", Short: "Manage positions"}
	pos.AddCommand(positionCreateCmd())
	pos.AddCommand(positionShowCmd())
	pos.AddCommand(positionUpdateCmd())
	pos.AddCommand(positionDeleteCmd())
	return pos
}

func positionCreateCmd() *cobra.Command {
	var deptID, title, desc, reportsTo, currency, frequency string
	var salaryMin, salaryMax float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a position (with its vacant appointment)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				dept, err := e.GetDepartment(ctx, deptID)
				if err != nil {
					return err
				}
				b, err := e.CreatePosition(ctx, engine.PositionCreateOptions{
					Company:             e.Config.Company.ID,
					OrgChartID:          dept.OrgChartID,
					DepartmentID:        dept.ID,
					Title:               title,
					Description:         desc,
					ReportsToPositionID: reportsTo,
					SalaryMin:           salaryMin,
					SalaryMax:           salaryMax,
					SalaryCurrency:      currency,
					SalaryFrequency:     frequency,
					ActorID:             viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(b)
			})
		},
	}
	cmd.Flags().StringVar(&deptID, "dept", "", "department id")
	cmd.Flags().StringVar(&title, "title", "", "position title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&reportsTo, "reports-to", "", "position id this one reports to")
	cmd.Flags().Float64Var(&salaryMin, "salary-min", 0, "salary band minimum")
	cmd.Flags().Float64Var(&salaryMax, "salary-max", 0, "salary band maximum")
	cmd.Flags().StringVar(&currency, "currency", "", "salary currency (config default when empty)")
	cmd.Flags().StringVar(&frequency, "frequency", "", "salary frequency (hourly, daily, weekly, monthly, annual, per_job)")
	_ = cmd.MarkFlagRequired("dept")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func positionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.GetPosition(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntity(p)
			})
		},
	}
	return cmd
}

func positionUpdateCmd() *cobra.Command {
	var title, desc, reportsTo, currency, frequency string
	var salaryMin, salaryMax float64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.PositionUpdateOptions{ActorID: viper.GetString("actor-id")}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("reports-to") {
					opts.ReportsToPositionID = &reportsTo
				}
				if cmd.Flags().Changed("salary-min") {
					opts.SalaryMin = &salaryMin
				}
				if cmd.Flags().Changed("salary-max") {
					opts.SalaryMax = &salaryMax
				}
				if cmd.Flags().Changed("currency") {
					opts.SalaryCurrency = &currency
				}
				if cmd.Flags().Changed("frequency") {
					opts.SalaryFrequency = &frequency
				}
				p, err := e.UpdatePosition(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printEntity(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "position title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&reportsTo, "reports-to", "", "position id this one reports to")
	cmd.Flags().Float64Var(&salaryMin, "salary-min", 0, "salary band minimum")
	cmd.Flags().Float64Var(&salaryMax, "salary-max", 0, "salary band maximum")
	cmd.Flags().StringVar(&currency, "currency", "", "salary currency")
	cmd.Flags().StringVar(&frequency, "frequency", "", "salary frequency")
	return cmd
}

func positionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a position and its appointments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeletePosition(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

// --- appointment ---

func appointmentCmd() *cobra.Command {
	appt := &cobra.Command{Use: "appointment", Short: "Manage appointments"}
	appt.AddCommand(appointmentCreateCmd())
	appt.AddCommand(appointmentShowCmd())
	appt.AddCommand(appointmentFillCmd())
	appt.AddCommand(appointmentVacateCmd())
	appt.AddCommand(appointmentDeleteCmd())
	return appt
}

func appointmentCreateCmd() *cobra.Command {
	var positionID, userID, displayName string
	var vacant bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an appointment for a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.CreateAppointment(ctx, engine.AppointmentCreateOptions{
					Company:         e.Config.Company.ID,
					PositionID:      positionID,
					UserID:          userID,
					UserDisplayName: displayName,
					IsVacant:        vacant,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(a)
			})
		},
	}
	cmd.Flags().StringVar(&positionID, "position", "", "position id")
	cmd.Flags().StringVar(&userID, "user-id", "", "appointed user id")
	cmd.Flags().StringVar(&displayName, "display-name", "", "appointed user display name")
	cmd.Flags().BoolVar(&vacant, "vacant", false, "create as vacancy")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func appointmentShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.GetAppointment(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntity(a)
			})
		},
	}
	return cmd
}

func appointmentFillCmd() *cobra.Command {
	var userID, displayName string
	cmd := &cobra.Command{
		Use:   "fill <id>",
		Short: "Fill a vacant appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.FillAppointment(ctx, args[0], engine.FillOptions{
					UserID:          userID,
					UserDisplayName: displayName,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(a)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	cmd.Flags().StringVar(&displayName, "display-name", "", "user display name")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func appointmentVacateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "vacate <id>",
		Short: "Vacate an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.VacateAppointment(ctx, args[0], engine.VacateOptions{
					TerminationReason: reason,
					ActorID:           viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printEntity(a)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "termination reason")
	return cmd
}

func appointmentDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeleteAppointment(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

// --- tree ---

func treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <chart-id>",
		Short: "Print a chart's hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rows, err := e.AssembleTree(ctx, e.Config.Company.ID, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Title", "Kind", "Code", "Level"})
				for _, r := range rows {
					tw.AppendRow(table.Row{strings.Repeat("  ", r.Level) + r.Title, r.Kind, r.Code, r.Level})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

// --- log ---

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Audit log"}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var chartID, evtType string
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail chart events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				events, err := e.Events.List(ctx, e.Config.Company.ID, chartID, evtType)
				if err != nil {
					return err
				}
				if n > 0 && len(events) > n {
					events = events[len(events)-n:]
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.TS, evt.Type, evt.EntityKind + " " + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&chartID, "chart", "", "chart id")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	_ = cmd.MarkFlagRequired("chart")
	return cmd
}

// --- api keys ---

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key (the secret is shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd.Context(), func(ctx context.Context, keys auth.Keys) error {
				if actorID == "" {
					actorID = viper.GetString("actor-id")
				}
				key, secret, err := keys.Issue(ctx, actorID, name)
				if err != nil {
					return err
				}
				return printEntity(map[string]string{
					"id":       key.ID,
					"actor_id": key.ActorID,
					"name":     key.Name,
					"key":      secret,
				})
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor-id", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd.Context(), func(ctx context.Context, keys auth.Keys) error {
				items, err := keys.List(ctx, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor-id", "", "filter by actor")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeys(cmd.Context(), func(ctx context.Context, keys auth.Keys) error {
				return keys.Delete(ctx, args[0])
			})
		},
	}
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			st := sqlstore.New(conn)
			e := engine.New(st, cfg)
			keys := auth.Keys{Store: st, Scope: cfg.Company.ID}
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("ORGLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("ORGLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, Keys: keys, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Orgline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(sqlstore.New(conn), cfg)
	return fn(ctx, e)
}

func withKeys(ctx context.Context, fn func(context.Context, auth.Keys) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, auth.Keys{Store: sqlstore.New(conn), Scope: cfg.Company.ID})
}

// printEntity renders a single record as indented JSON. List commands
// render tables instead when --json is off.
func printEntity(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
