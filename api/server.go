// Package api exposes the read-only query surface over the transfer ledgers.
// All mutation happens through the event source collaborators; nothing here
// writes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bridgeledger/ledger"
	"bridgeledger/observability"
)

// Server bundles the handlers' dependencies.
type Server struct {
	store   *ledger.Store
	minters *ledger.MinterRegistry
	logger  *slog.Logger
}

// New constructs the query server.
func New(store *ledger.Store, minters *ledger.MinterRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   store,
		minters: minters,
		logger:  logger.With(slog.String("component", "api")),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(observability.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/transfers", s.handleTransfers)
		r.Get("/token-pairs", s.handleTokenPairs)
		r.Get("/minters", s.handleMinters)
	})

	return r
}

type transferView struct {
	Direction      string `json:"direction"`
	TxHash         string `json:"txHash,omitempty"`
	ChainID        uint64 `json:"chainId"`
	Amount         string `json:"amount"`
	ActualReceived string `json:"actualReceived,omitempty"`
	From           string `json:"from"`
	To             string `json:"to"`
	Contract       string `json:"contract"`
	Status         string `json:"status"`
	Verified       bool   `json:"verified"`
	Time           uint64 `json:"time"`
	Operator       string `json:"operator"`
}

func transferViews(summaries []ledger.TransferSummary) []transferView {
	views := make([]transferView, 0, len(summaries))
	for _, summary := range summaries {
		view := transferView{
			Direction: string(summary.Direction),
			TxHash:    summary.TxHash,
			ChainID:   uint64(summary.ChainID),
			From:      summary.From,
			To:        summary.To,
			Contract:  summary.ContractAddress.Hex(),
			Status:    summary.Status,
			Verified:  summary.Verified,
			Time:      summary.Time,
			Operator:  summary.Operator.String(),
		}
		if summary.Amount != nil {
			view.Amount = summary.Amount.Dec()
		}
		if summary.ActualReceived != nil {
			view.ActualReceived = summary.ActualReceived.Dec()
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	account := strings.TrimSpace(r.URL.Query().Get("account"))

	switch {
	case address != "":
		if !common.IsHexAddress(address) {
			httpError(w, http.StatusBadRequest, "invalid address")
			return
		}
		summaries, err := s.store.TransfersForAddress(common.HexToAddress(address))
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		writeJSON(w, transferViews(summaries))
	case account != "":
		summaries, err := s.store.TransfersForAccount(account)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		writeJSON(w, transferViews(summaries))
	default:
		httpError(w, http.StatusBadRequest, "address or account query parameter required")
	}
}

type tokenPairView struct {
	Contract    string `json:"contract"`
	ChainID     uint64 `json:"chainId"`
	TwinAccount string `json:"twinAccount"`
	Operator    string `json:"operator"`
}

func (s *Server) handleTokenPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.store.SupportedPairs()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	views := make([]tokenPairView, 0, len(pairs))
	for _, pair := range pairs {
		views = append(views, tokenPairView{
			Contract:    pair.ContractAddress.Hex(),
			ChainID:     uint64(pair.ChainID),
			TwinAccount: pair.TwinAccount,
			Operator:    pair.Operator.String(),
		})
	}
	writeJSON(w, views)
}

type minterView struct {
	Account           string `json:"account"`
	ChainID           uint64 `json:"chainId"`
	Operator          string `json:"operator"`
	LastObservedEvent uint64 `json:"lastObservedEvent"`
	LastScrapedEvent  uint64 `json:"lastScrapedEvent"`
	DepositFee        string `json:"depositFee,omitempty"`
	WithdrawalFee     string `json:"withdrawalFee,omitempty"`
}

func (s *Server) handleMinters(w http.ResponseWriter, r *http.Request) {
	entries, err := s.minters.List()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	views := make([]minterView, 0, len(entries))
	for _, entry := range entries {
		view := minterView{
			Account:           entry.Minter.Account,
			ChainID:           uint64(entry.Minter.ChainID),
			Operator:          entry.Minter.Operator.String(),
			LastObservedEvent: entry.Minter.LastObservedEvent,
			LastScrapedEvent:  entry.Minter.LastScrapedEvent,
		}
		if entry.Minter.DepositFee != nil {
			view.DepositFee = entry.Minter.DepositFee.Dec()
		}
		if entry.Minter.WithdrawalFee != nil {
			view.WithdrawalFee = entry.Minter.WithdrawalFee.Dec()
		}
		views = append(views, view)
	}
	writeJSON(w, views)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
