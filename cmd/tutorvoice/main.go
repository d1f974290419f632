package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/tutorvoice/internal/profile"
	"github.com/hrygo/tutorvoice/internal/version"
	"github.com/hrygo/tutorvoice/server"
	"github.com/hrygo/tutorvoice/store"
	"github.com/hrygo/tutorvoice/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:           "tutorvoice",
		Short:         `A Korean tutor you can talk to. Chat replies come back as text and speech.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile := profileFromViper()
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			setupLogger(instanceProfile)
			return run(instanceProfile)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tutorvoice %s\n", version.Version)
		},
	}
)

func profileFromViper() *profile.Profile {
	return &profile.Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Data:             viper.GetString("data"),
		Driver:           viper.GetString("driver"),
		DSN:              viper.GetString("dsn"),
		OpenAIAPIKey:     viper.GetString("openai-api-key"),
		OpenAIBaseURL:    viper.GetString("openai-base-url"),
		ChatModel:        viper.GetString("chat-model"),
		TranslateModel:   viper.GetString("translate-model"),
		SpeechModel:      viper.GetString("speech-model"),
		Voice:            viper.GetString("voice"),
		PersonaFile:      viper.GetString("persona-file"),
		UpstreamTimeout:  viper.GetDuration("upstream-timeout"),
		SessionSecret:    viper.GetString("session-secret"),
		SessionTTL:       viper.GetDuration("session-ttl"),
		SessionRetention: viper.GetDuration("session-retention"),
		CleanupSchedule:  viper.GetString("cleanup-schedule"),
		RateLimit:        viper.GetFloat64("rate-limit"),
		RateBurst:        viper.GetInt("rate-burst"),
		WindowSize:       viper.GetInt("window-size"),
		Version:          version.GetCurrentVersion(viper.GetString("mode")),
	}
}

func run(instanceProfile *profile.Profile) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storeInstance *store.Store
	if instanceProfile.UsesDatabase() {
		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return err
		}

		storeInstance = store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			_ = storeInstance.Close()
			slog.Error("failed to migrate", "error", err)
			return err
		}
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		if storeInstance != nil {
			_ = storeInstance.Close()
		}
		slog.Error("failed to create server", "error", err)
		return err
	}

	printGreetings(instanceProfile)
	return s.Start(ctx)
}

func setupLogger(instanceProfile *profile.Profile) {
	var handler slog.Handler
	if instanceProfile.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", profile.DefaultPort)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", profile.DefaultPort, "port of server")
	rootCmd.PersistentFlags().String("data", "data", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "session storage driver: sqlite, postgres or memory")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (which can be a file path or URL)")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("openai-base-url", profile.DefaultOpenAIBaseURL, "OpenAI-compatible API base URL")
	rootCmd.PersistentFlags().String("chat-model", profile.DefaultChatModel, "model for tutor replies")
	rootCmd.PersistentFlags().String("translate-model", profile.DefaultTranslateModel, "model for translations")
	rootCmd.PersistentFlags().String("speech-model", profile.DefaultSpeechModel, "text-to-speech model")
	rootCmd.PersistentFlags().String("voice", profile.DefaultVoice, "text-to-speech voice")
	rootCmd.PersistentFlags().String("persona-file", "", "file holding a custom tutor persona")
	rootCmd.PersistentFlags().Duration("upstream-timeout", profile.DefaultUpstreamTimeout, "timeout of each provider call")
	rootCmd.PersistentFlags().String("session-secret", "", "HMAC key for session cookies (random per process when empty)")
	rootCmd.PersistentFlags().Duration("session-ttl", profile.DefaultSessionTTL, "session cookie lifetime")
	rootCmd.PersistentFlags().Duration("session-retention", profile.DefaultRetention, "idle sessions older than this are removed")
	rootCmd.PersistentFlags().String("cleanup-schedule", profile.DefaultCleanupSchedule, "cron spec of the session sweeper")
	rootCmd.PersistentFlags().Float64("rate-limit", profile.DefaultRateLimit, "requests per second allowed per session")
	rootCmd.PersistentFlags().Int("rate-burst", profile.DefaultRateBurst, "request burst allowed per session")
	rootCmd.PersistentFlags().Int("window-size", profile.DefaultWindowSize, "messages sent per completion, system instruction included")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("tutorvoice")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Variables the tutor has always honored.
	if err := viper.BindEnv("port", "TUTORVOICE_PORT", "PORT"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("openai-api-key", "TUTORVOICE_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(versionCmd)
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("tutorvoice %s started successfully!\n", instanceProfile.Version)
	if instanceProfile.Driver == "sqlite" {
		fmt.Printf("Database file: %s\n", instanceProfile.DSN)
	}
	fmt.Printf("Session storage: %s\n", instanceProfile.Driver)
	if len(instanceProfile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", instanceProfile.Port)
		fmt.Printf("Access your tutor at: http://localhost:%d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
		fmt.Printf("Access your tutor at: http://%s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
	fmt.Println("\nPress Ctrl+C to stop the server")
}

func main() {
	if err := profile.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Error("tutorvoice exited", "error", err)
		os.Exit(1)
	}
}
