package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CalSync/app/models"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage provider to internal user mappings",
}

var mappingSetCmd = &cobra.Command{
	Use:   "set [provider-user-id] [internal-user-id]",
	Short: "Map a provider user to an internal user",
	Args:  cobra.ExactArgs(2),
	RunE:  runMappingSet,
}

var mappingGetCmd = &cobra.Command{
	Use:   "get [provider-user-id]",
	Short: "Print the internal user of a provider user",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingGet,
}

var mappingDeleteCmd = &cobra.Command{
	Use:   "delete [provider-user-id]",
	Short: "Remove a mapping",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingDelete,
}

var mappingProvider string

func init() {
	mappingCmd.PersistentFlags().StringVarP(&mappingProvider, "provider", "p", string(models.ProviderOura), "Source provider (oura or strava)")

	mappingCmd.AddCommand(mappingSetCmd)
	mappingCmd.AddCommand(mappingGetCmd)
	mappingCmd.AddCommand(mappingDeleteCmd)
	rootCmd.AddCommand(mappingCmd)
}

func sourceProvider() (models.Provider, error) {
	p, ok := models.ParseProvider(mappingProvider)
	if !ok || !p.IsSource() {
		return "", fmt.Errorf("unknown source provider %q", mappingProvider)
	}
	return p, nil
}

func runMappingSet(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	p, err := sourceProvider()
	if err != nil {
		return err
	}
	if err := svc.Repos.Mapping.Put(cmd.Context(), p, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s user %s -> %s\n", p, args[0], args[1])
	return nil
}

func runMappingGet(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	p, err := sourceProvider()
	if err != nil {
		return err
	}
	id, err := svc.Repos.Mapping.GetInternalID(cmd.Context(), p, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runMappingDelete(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	p, err := sourceProvider()
	if err != nil {
		return err
	}
	if err := svc.Repos.Mapping.Delete(cmd.Context(), p, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s mapping for %s\n", p, args[0])
	return nil
}
