package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unveil/internal/commonwords"
	"github.com/robalobadob/unveil/internal/httpserver"
	"github.com/robalobadob/unveil/internal/savegame"
	"github.com/robalobadob/unveil/internal/schedule"
	"github.com/robalobadob/unveil/internal/wiki"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/unveil.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	store := savegame.NewSQLite(db)
	sched := schedule.NewService(getEnv("LISTS_BASE_URL", "https://unveil-lists.pages.dev/lists"))
	fetch := wiki.NewClient(os.Getenv("WIKI_API_URL"))
	words := commonwords.NewSource(os.Getenv("COMMON_WORDS_DIR"))

	srv := httpserver.New(db, store, sched, fetch, words)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting unveil server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
