package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/gridlabs/gridtrader/src/models"
	"github.com/gridlabs/gridtrader/src/simulator"
)

var decoder = schema.NewDecoder()

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := errorResponse{Type: errType, Msg: err.Error()}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		log.Errorf("setErrorResponse: encode: %v", encodeErr)
	}
}

type Handler struct {
	sim *simulator.Simulator
}

type accountResponse struct {
	Balance        float64 `json:"balance"`
	Profit         float64 `json:"profit"`
	FloatingProfit float64 `json:"floating_profit"`
	FreeMargin     float64 `json:"free_margin"`
	Margin         float64 `json:"margin"`
	Equity         float64 `json:"equity"`
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	state := h.sim.State()

	response := accountResponse{
		Balance:        state.Balance,
		Profit:         state.Profit,
		FloatingProfit: state.FloatingProfit,
		FreeMargin:     state.FreeMargin,
		Margin:         state.Margin,
		Equity:         state.Balance + state.FloatingProfit,
	}

	if err := setResponse(response, w); err != nil {
		log.Errorf("getAccount: %v", err)
	}
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	if err := setResponse(h.sim.State(), w); err != nil {
		log.Errorf("getState: %v", err)
	}
}

func (h *Handler) getOrders(w http.ResponseWriter, r *http.Request) {
	if err := setResponse(h.sim.State().Orders, w); err != nil {
		log.Errorf("getOrders: %v", err)
	}
}

type PlaceOrderRequest struct {
	Side   models.OrderSide `json:"side"`
	Price  float64          `json:"price"`
	Volume float64          `json:"volume"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("placeOrder: invalid payload", http.StatusBadRequest, err, w)
		return
	}

	if err := req.Side.Validate(); err != nil {
		setErrorResponse("placeOrder: invalid side", http.StatusBadRequest, err, w)
		return
	}

	if !h.sim.PlaceOrder(req.Side, req.Price, req.Volume) {
		setErrorResponse("placeOrder: rejected", http.StatusUnprocessableEntity, models.InsufficientMarginErr, w)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type historyQuery struct {
	Limit int `schema:"limit"`
}

func (h *Handler) getOrderHistory(w http.ResponseWriter, r *http.Request) {
	var query historyQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		setErrorResponse("getOrderHistory: invalid query", http.StatusBadRequest, err, w)
		return
	}

	history := h.sim.OrderHistory()
	if query.Limit > 0 && query.Limit < len(history) {
		history = history[len(history)-query.Limit:]
	}

	if err := setResponse(history, w); err != nil {
		log.Errorf("getOrderHistory: %v", err)
	}
}

type positionsQuery struct {
	Status string `schema:"status"`
}

func (h *Handler) getPositions(w http.ResponseWriter, r *http.Request) {
	var query positionsQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		setErrorResponse("getPositions: invalid query", http.StatusBadRequest, err, w)
		return
	}

	switch query.Status {
	case "", "open":
		if err := setResponse(h.sim.OpenPositions(), w); err != nil {
			log.Errorf("getPositions: %v", err)
		}
	case "closed":
		if err := setResponse(h.sim.ClosedPositions(), w); err != nil {
			log.Errorf("getPositions: %v", err)
		}
	default:
		setErrorResponse("getPositions: invalid status", http.StatusBadRequest, fmt.Errorf("unknown status %q", query.Status), w)
	}
}

func (h *Handler) getProfitSummary(w http.ResponseWriter, r *http.Request) {
	if err := setResponse(h.sim.GetProfitSummary(), w); err != nil {
		log.Errorf("getProfitSummary: %v", err)
	}
}

type distributionQuery struct {
	Bins int `schema:"bins"`
}

func (h *Handler) getDistribution(w http.ResponseWriter, r *http.Request) {
	var query distributionQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		setErrorResponse("getDistribution: invalid query", http.StatusBadRequest, err, w)
		return
	}

	distribution := h.sim.Distribution(query.Bins)
	if distribution == nil {
		setErrorResponse("getDistribution: not ready", http.StatusConflict, fmt.Errorf("not enough price history"), w)
		return
	}

	if err := setResponse(distribution, w); err != nil {
		log.Errorf("getDistribution: %v", err)
	}
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var settings simulator.GridSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		setErrorResponse("updateSettings: invalid payload", http.StatusBadRequest, err, w)
		return
	}

	if err := h.sim.SetGridSettings(settings); err != nil {
		setErrorResponse("updateSettings: rejected", http.StatusUnprocessableEntity, err, w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) initializeGrid(w http.ResponseWriter, r *http.Request) {
	h.sim.InitializeGrid()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearOrders(w http.ResponseWriter, r *http.Request) {
	h.sim.ClearOrders()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startSimulation(w http.ResponseWriter, r *http.Request) {
	h.sim.Start()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stopSimulation(w http.ResponseWriter, r *http.Request) {
	h.sim.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func NewRouter(sim *simulator.Simulator) *mux.Router {
	h := &Handler{sim: sim}

	r := mux.NewRouter()

	r.HandleFunc("/account", h.getAccount).Methods("GET")
	r.HandleFunc("/state", h.getState).Methods("GET")
	r.HandleFunc("/orders", h.getOrders).Methods("GET")
	r.HandleFunc("/orders", h.placeOrder).Methods("POST")
	r.HandleFunc("/orders/history", h.getOrderHistory).Methods("GET")
	r.HandleFunc("/positions", h.getPositions).Methods("GET")
	r.HandleFunc("/positions/summary", h.getProfitSummary).Methods("GET")
	r.HandleFunc("/distribution", h.getDistribution).Methods("GET")
	r.HandleFunc("/settings", h.updateSettings).Methods("POST")
	r.HandleFunc("/grid/initialize", h.initializeGrid).Methods("POST")
	r.HandleFunc("/grid/clear", h.clearOrders).Methods("POST")
	r.HandleFunc("/simulation/start", h.startSimulation).Methods("POST")
	r.HandleFunc("/simulation/stop", h.stopSimulation).Methods("POST")
	r.HandleFunc("/ws", h.streamState).Methods("GET")

	return r
}
