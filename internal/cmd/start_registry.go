package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

const registryContainerName = "ecp-registry"

var startRegistryCmd = &cobra.Command{
	Use:   "start-registry",
	Short: "Start a local TLS registry for pipeline validation.",
	Long: `Start a disposable local registry with TLS. Useful for exercising the
build/promote/cleanup cycle without credentials for the real registries
(e.g. together with --dry-run disabled and ECP_REGISTRY_IMAGE_PREFIX
pointed at localhost).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		port, _ := cmd.Flags().GetInt("port")

		if port == 0 {
			free, err := util.FindFreePort(5001, 100)
			if err != nil {
				return err
			}
			port = free
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		certDir := filepath.Join(home, ".ecp", "registry", "certs")

		tlsCrt := filepath.Join(certDir, "tls.crt")
		tlsKey := filepath.Join(certDir, "tls.key")
		_, errCrt := os.Stat(tlsCrt)
		_, errKey := os.Stat(tlsKey)
		if os.IsNotExist(errCrt) || os.IsNotExist(errKey) {
			fmt.Println("Generating self-signed registry certificate...")
			if err := util.GenerateRegistryCert(certDir); err != nil {
				return fmt.Errorf("generating registry cert: %w", err)
			}
		}

		// Replace any previous instance.
		_, _ = util.RunOutput("docker", "rm", "-f", registryContainerName)

		err = util.RunCommand("docker", "run", "-d",
			"--name", registryContainerName,
			"--restart", "unless-stopped",
			"-p", fmt.Sprintf("%d:5000", port),
			"-v", fmt.Sprintf("%s:/certs", certDir),
			"-v", "ecp-registry-data:/var/lib/registry",
			"-e", "REGISTRY_HTTP_TLS_CERTIFICATE=/certs/tls.crt",
			"-e", "REGISTRY_HTTP_TLS_KEY=/certs/tls.key",
			"-e", "REGISTRY_STORAGE_DELETE_ENABLED=true",
			image,
		)
		if err != nil {
			return fmt.Errorf("starting registry: %w", err)
		}

		fmt.Printf("Registry started at https://localhost:%d\n", port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startRegistryCmd)
	startRegistryCmd.Flags().String("image", "registry:2", "Registry image to use")
	startRegistryCmd.Flags().Int("port", 5001, "Host port (0 picks a free one)")
}
