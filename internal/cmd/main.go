package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rohit0033/live-polling/internal/api"
	"github.com/rohit0033/live-polling/internal/engine"
	"github.com/rohit0033/live-polling/internal/models"
	"github.com/rohit0033/live-polling/internal/push"
)

// logNotifier renders engine side effects to the log; a real front end
// would play the notification sound and show dialogs instead.
type logNotifier struct{}

func (logNotifier) PollEnded(poll *models.Poll) {
	log.Info().Str("poll_id", poll.ID).Str("question", poll.Question).Msg("poll ended, notify the teacher")
}

func (logNotifier) ActionFailed(action, message string) {
	log.Error().Str("action", action).Str("message", message).Msg("action rejected")
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	if level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	role := models.Role(config.Client.Role)
	switch role {
	case models.RoleTeacher, models.RoleStudent:
	default:
		log.Fatal().Str("role", config.Client.Role).Msg("role must be teacher or student")
	}

	session := models.NewSession()
	apiClient := api.NewClient(config.Server.APIURL)
	channel := push.NewChannel(push.DefaultConfig(config.Server.SocketURL))

	eng := engine.New(session, apiClient, channel, engine.WithNotifier(logNotifier{}))
	eng.SetDisplayName(config.Client.Name)
	eng.SetRole(role)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusServer := setupStatusServer(config.Status.Addr, eng)
	go func() {
		log.Info().Str("addr", config.Status.Addr).Msg("status server listening")
		if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}
	if err := channel.Close(); err != nil {
		log.Error().Err(err).Msg("push channel close failed")
	}
}
