package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mhrivnak/modeldash/pkg/client"
)

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "models",
		Aliases:     []string{"model"},
		Short:       "Manage models",
		Annotations: map[string]string{viewAnnotation: "/models"},
	}

	cmd.AddCommand(newModelsListCmd(a))
	cmd.AddCommand(newModelsUploadCmd(a))
	cmd.AddCommand(newModelsDeployCmd(a))
	cmd.AddCommand(newModelsScaleCmd(a))
	cmd.AddCommand(newModelsDeleteCmd(a))
	cmd.AddCommand(newModelsMetricsCmd(a))
	return cmd
}

func newModelsListCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := a.client.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				complete := models[:0]
				for _, m := range models {
					if m.Complete() {
						complete = append(complete, m)
					}
				}
				models = complete
			}

			return render(cmd, models, func(w io.Writer) error {
				rows := make([][]string, 0, len(models))
				for _, m := range models {
					rows = append(rows, []string{m.ID.String(), m.Name, m.ModelType, m.Version, m.Status})
				}
				return printTable(w, []string{"ID", "NAME", "TYPE", "VERSION", "STATUS"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include entries missing name, type, version or image")
	return cmd
}

func newModelsUploadCmd(a *app) *cobra.Command {
	var (
		desc          client.ModelDescriptor
		configFile    string
		resourcesFile string
		modelFile     string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a model descriptor, optionally with a model file",
		Example: `  modelctl models upload --name bert --type nlp --version 1.0 --image registry/bert:1.0 \
    --config '{"layers": 12}' --resource-limits '{"cpu": "2", "memory": "4Gi"}'
  modelctl models upload --name bert --config-file bert.json --file weights.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				b, err := os.ReadFile(configFile)
				if err != nil {
					return fmt.Errorf("read config file: %w", err)
				}
				desc.Config = string(b)
			}
			if resourcesFile != "" {
				b, err := os.ReadFile(resourcesFile)
				if err != nil {
					return fmt.Errorf("read resource limits file: %w", err)
				}
				desc.ResourceLimits = string(b)
			}
			if modelFile != "" {
				f, err := os.Open(modelFile)
				if err != nil {
					return fmt.Errorf("open model file: %w", err)
				}
				defer f.Close()
				desc.File = &client.ModelFile{Name: filepath.Base(modelFile), Content: f}
			}

			model, err := a.client.UploadModel(cmd.Context(), desc)
			if err != nil {
				return err
			}
			return render(cmd, model, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Uploaded model %s (id %s)\n", model.Name, model.ID)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&desc.Name, "name", "", "Model name")
	flags.StringVar(&desc.Description, "description", "", "Model description")
	flags.StringVar(&desc.ModelType, "type", "", "Model type")
	flags.StringVar(&desc.Version, "version", "", "Model version")
	flags.StringVar(&desc.DockerImage, "image", "", "Container image serving the model")
	flags.StringVar(&desc.Config, "config", "", "Model configuration as a JSON object")
	flags.StringVar(&configFile, "config-file", "", "Read the model configuration from a file")
	flags.StringVar(&desc.ResourceLimits, "resource-limits", "", "Resource limits as a JSON object")
	flags.StringVar(&resourcesFile, "resource-limits-file", "", "Read the resource limits from a file")
	flags.StringVar(&modelFile, "file", "", "Model file to upload with the descriptor")
	cmd.MarkFlagsMutuallyExclusive("config", "config-file")
	cmd.MarkFlagsMutuallyExclusive("resource-limits", "resource-limits-file")
	return cmd
}

func newModelsDeployCmd(a *app) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:     "deploy <model-id>",
		Short:   "Deploy a model to a cloud provider",
		Example: `  modelctl models deploy 42 --provider GCP`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := client.ParseCloudProvider(provider)
			if err != nil {
				p = client.CloudProvider(provider)
			}
			deployment, err := a.client.DeployModel(cmd.Context(), client.DeploymentRequest{
				ModelID:       client.ID(args[0]),
				CloudProvider: p,
			})
			if err != nil {
				return err
			}
			return render(cmd, deployment, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deployment %s of model %s to %s: %s\n",
					deployment.ID, args[0], deployment.CloudProvider, deployment.Status)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", string(client.AWS), "Cloud provider: AWS, GCP or Azure")
	return cmd
}

func newModelsScaleCmd(a *app) *cobra.Command {
	var req client.ScaleRequest

	cmd := &cobra.Command{
		Use:     "scale <model-id>",
		Short:   "Change replicas and per-replica resources",
		Example: `  modelctl models scale 42 --replicas 3 --cpu 500m --memory 1Gi`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.ScaleModel(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return render(cmd, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Scaled model %s to %d replicas\n", args[0], req.Replicas)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&req.Replicas, "replicas", 0, "Number of replicas (required)")
	cmd.Flags().StringVar(&req.Resources.CPU, "cpu", "", "CPU per replica")
	cmd.Flags().StringVar(&req.Resources.Memory, "memory", "", "Memory per replica")
	_ = cmd.MarkFlagRequired("replicas")
	return cmd
}

func newModelsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted model %s\n", args[0])
			return nil
		},
	}
}

func newModelsMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <model-id>",
		Short: "Show metrics reported for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := a.client.GetModelMetrics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, metrics, func(w io.Writer) error {
				keys := make([]string, 0, len(metrics))
				for k := range metrics {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				return printDetail(w, keys, metrics)
			})
		},
	}
}
