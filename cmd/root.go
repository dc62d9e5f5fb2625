package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/logging"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const serviceName = "n8n-video-renderer"

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "n8n-video-renderer",
	Short: "Render narrated short videos for n8n workflows",
	Long: `n8n-video-renderer turns a list of scenes into a narrated vertical video:

  - Synthesize each scene script to speech
  - Build one clip per scene image with ffmpeg
  - Concatenate the clips into a single MP4
  - Upload to Google Cloud Storage (or Drive, or a local directory)
  - Report back by webhook, Telegram or email

Example:
  n8n-video-renderer serve --port 8080`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	logger = logging.Setup(logging.FromEnv(serviceName))

	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	// Help and setup work without a usable config, so errors are kept
	// for the commands that need it
	cfg, cfgErr = config.Load(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, cfgErr)
	}
	return cfg, nil
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}
