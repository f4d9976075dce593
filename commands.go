package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-authgate/appgrant/internal/bootstrap"
	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/services"
	"github.com/go-authgate/appgrant/internal/store"

	"github.com/spf13/cobra"
)

func newRefreshScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-scores",
		Short: "Decay every user-app frequency score to the current time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, config.Load(),
				func(ctx context.Context, app *bootstrap.Application) error {
					updated, err := app.FrequencyService.RefreshAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d relations\n", updated)
					return nil
				})
		},
	}
}

func newScopesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "Inspect and maintain the scope catalog",
	}
	cmd.AddCommand(newScopesListCmd())
	cmd.AddCommand(newScopesSeedCmd())
	cmd.AddCommand(newScopesCreateCmd())
	return cmd
}

func newScopesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every scope in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, config.Load(),
				func(ctx context.Context, app *bootstrap.Application) error {
					scopes, err := app.ScopeCatalog.ListAll(ctx)
					if err != nil {
						return err
					}
					printScopes(cmd, scopes)
					return nil
				})
		},
	}
}

func newScopesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create any missing required scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.SeedScopes = true
			return withApplication(cmd, cfg,
				func(ctx context.Context, app *bootstrap.Application) error {
					scopes := make([]models.Scope, 0, len(cfg.RequiredScopes))
					for _, name := range cfg.RequiredScopes {
						scope, err := app.ScopeCatalog.Required(name)
						if err != nil {
							return err
						}
						scopes = append(scopes, scope)
					}
					printScopes(cmd, scopes)
					return nil
				})
		},
	}
}

func newScopesCreateCmd() *cobra.Command {
	var (
		name        string
		description string
		always      bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a scope to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var alwaysFlag *bool
			if cmd.Flags().Changed("always") {
				alwaysFlag = &always
			}
			return withApplication(cmd, config.Load(),
				func(ctx context.Context, app *bootstrap.Application) error {
					scope, err := app.ScopeCatalog.Create(ctx, name, description, alwaysFlag)
					if err != nil {
						return err
					}
					printScopes(cmd, []models.Scope{*scope})
					return nil
				})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "scope name")
	cmd.Flags().StringVar(&description, "description", "", "scope description")
	cmd.Flags().BoolVar(&always, "always", false, "grant the scope without asking")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func printScopes(cmd *cobra.Command, scopes []models.Scope) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tALWAYS\tDESCRIPTION")
	for _, scope := range scopes {
		view := services.NewScopeView(scope)
		always := "-"
		if view.Always != nil {
			always = fmt.Sprintf("%t", *view.Always)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", view.ID, view.Name, always, view.Description)
	}
	_ = w.Flush()
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}
	cmd.AddCommand(newAuditListCmd())
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		eventType  string
		resourceID string
		actorID    string
		severity   string
		since      time.Duration
		page       int
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit log entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := store.AuditLogFilters{
				EventType:   models.EventType(strings.ToUpper(eventType)),
				ResourceID:  resourceID,
				ActorUserID: actorID,
				Severity:    models.EventSeverity(strings.ToUpper(severity)),
			}
			if since > 0 {
				filters.StartTime = time.Now().Add(-since)
			}

			return withApplication(cmd, config.Load(),
				func(ctx context.Context, app *bootstrap.Application) error {
					logs, result, err := app.AuditService.GetAuditLogs(
						ctx,
						store.NewPaginationParams(page, pageSize, ""),
						filters,
					)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "TIME\tEVENT\tSEVERITY\tACTOR\tRESOURCE\tSUCCESS\tACTION")
					for _, l := range logs {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\t%t\t%s\n",
							l.EventTime.UTC().Format(time.RFC3339),
							l.EventType,
							l.Severity,
							l.ActorUserID,
							l.ResourceType,
							l.ResourceID,
							l.Success,
							l.Action,
						)
					}
					_ = w.Flush()
					fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d entries)\n",
						result.CurrentPage, result.TotalPages, result.Total)
					return nil
				})
		},
	}
	cmd.Flags().StringVar(&eventType, "event", "", "filter by event type (e.g. APP_CREATED)")
	cmd.Flags().StringVar(&resourceID, "resource", "", "filter by resource id")
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor user id")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this age (e.g. 24h)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "entries per page")
	return cmd
}
