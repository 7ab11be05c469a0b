package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	di "github.com/storelens/storelens-ingestion-backend/internal/dependencyinjection"
	"github.com/storelens/storelens-ingestion-backend/internal/tenant"
)

func TenantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage the tenants directory in the admin database",
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Onboard a new tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantsAdd(cmd.Context())
		},
	}
	addCmd.Flags().String("name", "", "Name of the tenant to onboard")
	cmd.AddCommand(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every tenant in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantsList(cmd)
		},
	}
	cmd.AddCommand(listCmd)

	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a tenant, rejecting new jobs for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantsDeactivate(cmd.Context())
		},
	}
	deactivateCmd.Flags().String("tenant-id", "", "ID of the tenant to deactivate")
	cmd.AddCommand(deactivateCmd)

	return cmd
}

func tenantManagerFromGlobalOptions(ctx context.Context) (tenant.ManagerInterface, error) {
	adminDBConnectionPool, err := di.NewAdminDBConnectionPool(ctx, di.DBConnectionPoolOptions{AdminDatabaseURL: globalOptions.AdminDatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("getting admin DB connection pool: %w", err)
	}
	return tenant.NewManager(tenant.WithDatabase(adminDBConnectionPool)), nil
}

func runTenantsAdd(ctx context.Context) error {
	tenantManager, err := tenantManagerFromGlobalOptions(ctx)
	if err != nil {
		return err
	}

	tnt, err := tenantManager.AddTenant(ctx, viper.GetString("name"))
	if err != nil {
		return fmt.Errorf("adding tenant: %w", err)
	}

	log.WithContext(ctx).Infof("tenant %s added with ID %s", tnt.Name, tnt.ID)
	return nil
}

func runTenantsList(cmd *cobra.Command) error {
	ctx := cmd.Context()
	tenantManager, err := tenantManagerFromGlobalOptions(ctx)
	if err != nil {
		return err
	}

	tenants, err := tenantManager.GetAllTenants(ctx)
	if err != nil {
		return fmt.Errorf("getting all tenants: %w", err)
	}

	out, err := json.MarshalIndent(tenants, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tenants: %w", err)
	}
	cmd.Println(string(out))
	return nil
}

func runTenantsDeactivate(ctx context.Context) error {
	tenantManager, err := tenantManagerFromGlobalOptions(ctx)
	if err != nil {
		return err
	}

	tenantID := viper.GetString("tenant-id")
	if err = tenantManager.DeactivateTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("deactivating tenant %s: %w", tenantID, err)
	}

	log.WithContext(ctx).Infof("tenant %s deactivated", tenantID)
	return nil
}
