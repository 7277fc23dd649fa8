package slack

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	goslack "github.com/slack-go/slack"

	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/messaging"
)

// cfoCommands are the admin subcommands forwarded to the CFO agent over the
// bus, per the commands accepted from the admin sink.
var cfoCommands = map[string]bool{
	"cfo_stop": true, "cfo_start": true, "cfo_status": true, "cfo_scan": true,
	"cfo_decide": true, "cfo_approve": true, "cfo_close_poly": true, "cfo_close_hl": true,
	"cfo_close_all": true, "cfo_stake": true, "cfo_deposit": true, "cfo_hedge": true,
	"scout_intel": true, "market_crash": true, "emergency_exit": true,
}

// Handler provides HTTP handlers for Slack integration: signature
// verification plus slash-command ingress that forwards admin commands to
// the CFO agent over the bus.
type Handler struct {
	bus           *bus.Bus
	logger        *slog.Logger
	signingSecret string
}

// NewHandler creates a Slack Handler.
func NewHandler(b *bus.Bus, logger *slog.Logger, signingSecret string) *Handler {
	return &Handler{
		bus:           b,
		logger:        logger,
		signingSecret: signingSecret,
	}
}

// Routes returns a chi.Router with Slack webhook routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(VerifyMiddleware(h.signingSecret))
	r.Post("/commands", h.handleCommands)
	return r
}

func (h *Handler) handleCommands(w http.ResponseWriter, r *http.Request) {
	cmd, err := goslack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "invalid command", http.StatusBadRequest)
		return
	}

	h.logger.Info("slash command received",
		"command", cmd.Command,
		"text", cmd.Text,
		"user", cmd.UserID,
		"channel", cmd.ChannelID,
	)

	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 {
		respondJSON(w, "ephemeral", "Usage: /nova <cfo_status|cfo_stop|cfo_start|cfo_scan|cfo_decide|cfo_approve <id>|cfo_close_poly|cfo_close_hl|cfo_close_all|cfo_stake <amount>|cfo_deposit <asset> <amount>|cfo_hedge <exposureUsd> <leverage>>")
		return
	}

	name := strings.ToLower(fields[0])
	if !cfoCommands[name] {
		respondJSON(w, "ephemeral", "Unknown command: "+name)
		return
	}

	incoming := messaging.IncomingCommand{
		Command:   name,
		Args:      strings.Join(fields[1:], " "),
		UserRef:   cmd.UserID,
		ChannelID: cmd.ChannelID,
	}

	if _, err := h.bus.Send(r.Context(), bus.SendParams{
		From:     "slack",
		To:       "nova-cfo",
		Type:     "command",
		Priority: bus.PriorityHigh,
		Payload:  incoming,
	}); err != nil {
		h.logger.Error("forwarding slash command to bus", "error", err, "command", name)
		respondJSON(w, "ephemeral", "Failed to dispatch command.")
		return
	}

	respondJSON(w, "ephemeral", "Command `"+name+"` dispatched to the CFO.")
}

func respondJSON(w http.ResponseWriter, responseType, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response_type": responseType,
		"text":          text,
	})
}
