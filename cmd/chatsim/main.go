package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/autosales-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
	"github.com/wolfman30/autosales-assistant/internal/conversation"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// chatsim drives dialogue turns from stdin against an in-memory session store,
// printing each turn result as JSON. Useful for tuning extraction rules.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	cfg.UseMemoryStore = true
	logger := logging.New(cfg.LogLevel)

	userID := "chatsim"
	if len(os.Args) > 1 {
		userID = os.Args[1]
	}

	ctx := context.Background()
	sim, cleanup, err := newSimulator(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start simulator: %v", err)
	}
	defer cleanup()

	fmt.Printf("chatsim: talking as %q (empty line or Ctrl-D to quit)\n", userID)
	if err := sim.run(ctx, userID, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("chatsim: %v", err)
	}
}

type simulator struct {
	turns     conversation.TurnHandler
	responder conversation.Responder
}

func newSimulator(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*simulator, func(), error) {
	cars, err := bootstrap.BuildCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := bootstrap.BuildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	classifier, closeClassifier, err := bootstrap.BuildIntentClassifier(ctx, cfg, nil, logger)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	orchestrator := conversation.NewOrchestrator(store, cars, classifier, logger,
		conversation.WithOptionLimit(cfg.OptionLimit),
	)
	cleanup := func() {
		_ = closeClassifier()
		_ = closeStore()
	}
	return &simulator{
		turns:     orchestrator,
		responder: conversation.NewTemplateResponder(cfg.FinancingRate),
	}, cleanup, nil
}

type simOutput struct {
	Turn  *conversation.TurnResult `json:"turn"`
	Reply conversation.Reply       `json:"reply"`
}

func (s *simulator) run(ctx context.Context, userID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		turn, err := s.turns.HandleTurn(ctx, conversation.ChatRequest{
			UserID:  userID,
			Message: line,
			Channel: conversation.ChannelWeb,
		})
		if err != nil {
			return err
		}
		reply, err := s.responder.Respond(ctx, turn)
		if err != nil {
			return err
		}
		if err := enc.Encode(simOutput{Turn: turn, Reply: reply}); err != nil {
			return err
		}
	}
}
