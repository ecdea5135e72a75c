package stub

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
	"github.com/xenking/larek/internal/wire"
)

const maxOrderBody = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
}

// Handler serves the WebLarek API routes.
type Handler struct {
	products     product.Repository
	orders       *OrderService
	replays      *Replays
	imageBaseURL string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig, products product.Repository, orders *OrderService, replays *Replays) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		replays:      replays,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// Register mounts the API routes on mux under prefix.
func (h *Handler) Register(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	mux.HandleFunc("GET "+prefix+"/product", h.ListProducts)
	mux.HandleFunc("GET "+prefix+"/product/{id}", h.GetProduct)
	mux.HandleFunc("POST "+prefix+"/order", h.PlaceOrder)
}

// ListProducts answers {"total", "items"}.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.products.List(r.Context())
	if err != nil {
		h.internalError(w, r, errors.Wrap(err, "list products"))
		return
	}
	for i := range items {
		items[i] = h.withImageBase(items[i])
	}

	e := &jx.Encoder{}
	wire.EncodeProductList(e, items)
	writeJSON(w, http.StatusOK, e)
}

// GetProduct answers a single product or 404.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NotFound")
			return
		}
		h.internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	e := &jx.Encoder{}
	wire.EncodeProduct(e, h.withImageBase(*p))
	writeJSON(w, http.StatusOK, e)
}

// PlaceOrder validates and accepts an order. A repeated Idempotency-Key
// replays the first answer.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if res, ok := h.replays.Get(key); ok {
			lg.Info("Replaying order result", zap.String("key", key))
			writeResult(w, res)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxOrderBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	req, err := wire.DecodeOrder(jx.DecodeBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var res order.Result
	placed, err := h.orders.PlaceOrder(ctx, req)
	switch {
	case err == nil:
		lg.Info("Order placed", zap.String("id", placed.ID), zap.Stringer("total", placed.Total))
		res = order.Result{ID: placed.ID, Total: placed.Total}
	case IsRejection(err):
		lg.Info("Order rejected", zap.Error(err))
		res = order.Result{Error: err.Error()}
	default:
		h.internalError(w, r, err)
		return
	}

	if key != "" {
		res = h.replays.Store(key, res)
	}
	writeResult(w, res)
}

func (h *Handler) withImageBase(p product.Product) product.Product {
	if h.imageBaseURL == "" || p.Image == "" || strings.Contains(p.Image, "://") {
		return p
	}
	if !strings.HasPrefix(p.Image, "/") {
		p.Image = "/" + p.Image
	}
	p.Image = h.imageBaseURL + p.Image
	return p
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func writeResult(w http.ResponseWriter, res order.Result) {
	status := http.StatusOK
	if res.Error != "" {
		status = http.StatusBadRequest
	}
	e := &jx.Encoder{}
	wire.EncodeResult(e, res)
	writeJSON(w, status, e)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	e := &jx.Encoder{}
	wire.EncodeError(e, msg)
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
