package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/kitty_ledger/internal/httputil"
	"github.com/R3E-Network/kitty_ledger/internal/kitties"
)

type eventResponse struct {
	Kind    string        `json:"kind"`
	Payload kitties.Event `json:"payload"`
}

type receiptResponse struct {
	ID     kitties.KittyID `json:"id"`
	Height uint64          `json:"height"`
	Events []eventResponse `json:"events"`
}

func newReceiptResponse(rc kitties.Receipt) receiptResponse {
	out := receiptResponse{ID: rc.ID, Height: rc.Height, Events: make([]eventResponse, 0, len(rc.Events))}
	for _, ev := range rc.Events {
		out.Events = append(out.Events, eventResponse{Kind: ev.Kind(), Payload: ev})
	}
	return out
}

// =============================================================================
// Extrinsics
// =============================================================================

func (s *Server) handleCreateKitty(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	receipt, err := s.module.CreateKitty(r.Context(), caller)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newReceiptResponse(receipt))
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := kittyIDVar(w, r)
	if !ok {
		return
	}
	var payload struct {
		Price *kitties.Balance `json:"price"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	receipt, err := s.module.SetPrice(r.Context(), caller, id, payload.Price)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := kittyIDVar(w, r)
	if !ok {
		return
	}
	var payload struct {
		To kitties.AccountID `json:"to"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(string(payload.To)) == "" {
		httputil.BadRequest(w, "to required")
		return
	}

	receipt, err := s.module.Transfer(r.Context(), caller, payload.To, id)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s *Server) handleBuyKitty(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := kittyIDVar(w, r)
	if !ok {
		return
	}
	var payload struct {
		MaxPrice *kitties.Balance `json:"max_price"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if payload.MaxPrice == nil {
		httputil.BadRequest(w, "max_price required")
		return
	}

	receipt, err := s.module.BuyKitty(r.Context(), caller, id, *payload.MaxPrice)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s *Server) handleBreedKitty(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Parents []kitties.KittyID `json:"parents"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(payload.Parents) != 2 {
		httputil.BadRequest(w, "exactly two parents required")
		return
	}

	receipt, err := s.module.BreedKitty(r.Context(), caller, payload.Parents[0], payload.Parents[1])
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newReceiptResponse(receipt))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	account := kitties.AccountID(mux.Vars(r)["account"])
	var payload struct {
		Amount kitties.Balance `json:"amount"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if payload.Amount == 0 {
		httputil.BadRequest(w, "amount must be positive")
		return
	}

	if err := s.module.Deposit(r.Context(), account, payload.Amount); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.writeBalance(w, r, account)
}

// =============================================================================
// Queries
// =============================================================================

func (s *Server) handleGetKitty(w http.ResponseWriter, r *http.Request) {
	id, ok := kittyIDVar(w, r)
	if !ok {
		return
	}
	kitty, err := s.module.Kitty(r.Context(), id)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kitty)
}

func (s *Server) handleAccountKitties(w http.ResponseWriter, r *http.Request) {
	account := kitties.AccountID(mux.Vars(r)["account"])
	ids, err := s.module.KittiesOwned(r.Context(), account)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if ids == nil {
		ids = []kitties.KittyID{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"kitties": ids,
	})
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	s.writeBalance(w, r, kitties.AccountID(mux.Vars(r)["account"]))
}

func (s *Server) writeBalance(w http.ResponseWriter, r *http.Request, account kitties.AccountID) {
	balance, err := s.module.Balance(r.Context(), account)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balance,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.module.Stats(r.Context())
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Helpers
// =============================================================================

func requireCaller(w http.ResponseWriter, r *http.Request) (kitties.AccountID, bool) {
	caller := strings.TrimSpace(r.Header.Get(HeaderAccountID))
	if caller == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "", fmt.Sprintf("%s header required", HeaderAccountID))
		return "", false
	}
	return kitties.AccountID(caller), true
}

func kittyIDVar(w http.ResponseWriter, r *http.Request) (kitties.KittyID, bool) {
	id, err := kitties.ParseKittyID(mux.Vars(r)["id"])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return id, false
	}
	return id, true
}
