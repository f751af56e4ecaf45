package main

import (
	"context"
	"expvar"
	"math/rand"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"sign-arena/internal/arena"
	"sign-arena/internal/classifier"
	"sign-arena/internal/config"
	"sign-arena/internal/game"
	"sign-arena/internal/identity"
	"sign-arena/internal/logging"
	"sign-arena/internal/store"
	httptransport "sign-arena/internal/transport/http"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	verifier, err := identity.NewVerifier(cfg.AuthSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("auth init failed")
	}

	cls := classifier.New(cfg.ClassifierBaseURL, cfg.ClassifierTimeout, cfg.VectorLengths)
	coord := arena.NewCoordinator(st, cls, arena.Config{
		Alphabet:      cfg.Alphabet,
		ItemSeconds:   cfg.ItemSeconds,
		PollInterval:  cfg.PollInterval,
		FeedbackDelay: cfg.FeedbackDelay,
		SessionTTL:    time.Duration(cfg.SessionTTLHours) * time.Hour,
	})
	coord.StartJanitor(context.Background(), time.Minute)
	expvar.Publish("sessions_active", expvar.Func(func() any { return coord.SessionCount() }))

	startLetterCron(st, cfg.Alphabet)

	r := httptransport.NewRouter(st, cfg, coord, verifier)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// startLetterCron pre-generates each day's letter sequence at midnight so
// the first player of the day never races the shuffle. Sessions fall back
// to generating on demand if the job missed.
func startLetterCron(st *store.Store, alphabet []string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ensure := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		date := game.Today(time.Now())
		letters, err := st.EnsureDailyLetters(ctx, date, game.ShuffledLetters(alphabet, rng))
		if err != nil {
			log.Warn().Err(err).Str("play_date", date).Msg("daily letters pre-generation failed")
			return
		}
		log.Info().Str("play_date", date).Int("letters", len(letters)).Msg("daily letters ready")
	}
	ensure()

	c := cron.New()
	if _, err := c.AddFunc("0 0 * * *", ensure); err != nil {
		log.Fatal().Err(err).Msg("letter cron init failed")
	}
	c.Start()
}
