// Command bombbuster runs the BombBuster inference-engine service, or
// replays a persisted session's event log for offline inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ettoremodina/bombbuster/engine"
	"github.com/ettoremodina/bombbuster/service/internal/cache"
	"github.com/ettoremodina/bombbuster/service/internal/config"
	"github.com/ettoremodina/bombbuster/service/internal/database"
	"github.com/ettoremodina/bombbuster/service/internal/log"
	"github.com/ettoremodina/bombbuster/service/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:   "bombbuster",
		Short: "BombBuster inference engine service",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(replayCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)

			ctx := context.Background()
			store, err := database.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			var sigCache *cache.SignatureCache
			if cfg.RedisAddr != "" {
				sigCache = cache.New(cfg.RedisAddr, cfg.RedisPassword)
				if err := sigCache.Ping(ctx); err != nil {
					return fmt.Errorf("connecting to redis: %w", err)
				}
				defer sigCache.Close()
			}

			origins := strings.Split(cfg.OriginAllowlist, ",")
			srv := server.New(logger, store, sigCache, cfg.JWTSecret, origins)

			if err := srv.RestoreSessions(ctx); err != nil {
				return fmt.Errorf("restoring sessions: %w", err)
			}

			logger.WithField("port", cfg.Port).Info("starting bombbuster server")
			return http.ListenAndServe(":"+cfg.Port, srv.Routes())
		},
	}
}

// replaySnapshot is the on-disk shape a `replay` invocation consumes: a
// config plus one owning seat's wire and the public event log, mirroring
// what database.Store persists per session.
type replaySnapshot struct {
	Deck     map[engine.Value]int `json:"deck"`
	NPlayers int                  `json:"nPlayers"`
	LMax     int                  `json:"lMax"`
	Mode     string               `json:"mode"`
	Owner    int                  `json:"owner"`
	OwnWire  []engine.Value       `json:"ownWire"`
	Events   []engine.Event       `json:"events"`
}

func replayCmd() *cobra.Command {
	var owner int
	cmd := &cobra.Command{
		Use:   "replay <snapshot.json>",
		Short: "Replay a persisted event log from one seat's perspective and print the resulting belief state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}
			var snap replaySnapshot
			if err := json.Unmarshal(buf, &snap); err != nil {
				return fmt.Errorf("decoding snapshot: %w", err)
			}

			mode := engine.ModeSimulation
			if snap.Mode == "IRL" {
				mode = engine.ModeIRL
			}
			cfg, err := engine.NewConfig(snap.Deck, snap.NPlayers, snap.LMax, mode)
			if err != nil {
				return err
			}

			eventLog := engine.NewEventLog()
			for _, e := range snap.Events {
				eventLog.Append(e)
			}

			orch, err := eventLog.Replay(cfg, owner, snap.OwnWire)
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}

			for _, slot := range orch.GetCertainSlots() {
				fmt.Printf("player=%d position=%d value=%v\n", slot.Player, slot.Position, slot.Value)
			}
			fmt.Printf("strikes=%d win=%v lost=%v\n", orch.Strikes(), orch.IsWin(), orch.IsLost())
			return nil
		},
	}
	cmd.Flags().IntVar(&owner, "owner", 0, "seat whose belief perspective to replay")
	return cmd
}
