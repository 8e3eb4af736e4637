package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kakapo-ai/kakapo/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// startupModels is how many models the startup banner lists.
const startupModels = 5

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chatbot HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if c.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx := cmd.Context()
			logStartup(ctx, a)

			srv := server.New(c.cfg, a.answers, a.llm, a.resolver, a.auditSink())
			return srv.ListenAndServe(ctx)
		},
	}
}

// logStartup reports key status and lists the first few available models.
func logStartup(ctx context.Context, a *app) {
	if !a.cfg.HasAPIKey() {
		log.Warn().Msg("GEMINI_API_KEY not set, model endpoints will return errors")
		log.Info().Msg("get a key at https://aistudio.google.com/app/apikey")
		return
	}
	log.Info().Msg("GEMINI_API_KEY configured")

	list, err := a.llm.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not list models")
		return
	}
	if len(list) == 0 {
		log.Warn().Msg("no models found, the API key may have issues")
		return
	}
	log.Info().Int("count", len(list)).Msg("available models")
	for _, m := range list[:min(startupModels, len(list))] {
		log.Info().Str("model", m.DisplayName).Msg("available model")
	}
	if len(list) > startupModels {
		log.Info().Int("more", len(list)-startupModels).Msg("more models available")
	}
}
