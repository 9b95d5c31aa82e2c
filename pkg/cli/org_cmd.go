package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mhrivnak/modeldash/pkg/client"
)

func newOrgCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "org",
		Aliases:     []string{"organization"},
		Short:       "Manage organizations",
		Annotations: map[string]string{viewAnnotation: "/settings"},
	}
	cmd.AddCommand(newOrgCreateCmd(a))
	return cmd
}

func newOrgCreateCmd(a *app) *cobra.Command {
	var req client.OrganizationRequest

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			org, err := a.client.CreateOrganization(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, org, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created organization %s (id %s)\n", org.Name, org.ID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&req.Description, "description", "", "Organization description")
	return cmd
}
