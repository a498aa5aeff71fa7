package booking_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ms-seating/internal/booking"
	"ms-seating/internal/confirmation"
	"ms-seating/internal/logger"
	"ms-seating/internal/models"
	"ms-seating/internal/sse"
	"ms-seating/internal/utils"
)

type BookingService interface {
	AvailableSeatCount(ctx context.Context) (int, error)
	FindAndHoldSeats(ctx context.Context, numSeats int, customerEmail string) (*models.SeatHold, error)
	ReserveSeats(ctx context.Context, seatHoldID int64, customerEmail string) (string, error)
	GetHold(ctx context.Context, id int64) (*models.SeatHold, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
}

type Handler struct {
	Service     BookingService
	QRGenerator *confirmation.QRGenerator
	HoldExpiry  time.Duration
	Logger      *logger.Logger

	// Stream feeds GET /api/venue/seats/stream. Nil disables the stream.
	Stream *sse.SeatEventEmitter
}

func NewHandler(service BookingService, qr *confirmation.QRGenerator, holdExpiry time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		Service:     service,
		QRGenerator: qr,
		HoldExpiry:  holdExpiry,
		Logger:      log,
	}
}

type holdRequest struct {
	NumSeats      int    `json:"num_seats"`
	CustomerEmail string `json:"customer_email"`
}

type reserveRequest struct {
	SeatHoldID    int64  `json:"seat_hold_id"`
	CustomerEmail string `json:"customer_email"`
}

type holdResponse struct {
	ID            int64          `json:"id"`
	EventID       int64          `json:"event_id"`
	SeatMap       models.SeatMap `json:"seat_map"`
	SeatCount     int            `json:"seat_count"`
	CustomerEmail string         `json:"customer_email"`
	HoldTime      time.Time      `json:"hold_time"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

func (h *Handler) toHoldResponse(hold *models.SeatHold) holdResponse {
	return holdResponse{
		ID:            hold.ID,
		EventID:       hold.EventID,
		SeatMap:       hold.SeatMap,
		SeatCount:     hold.SeatMap.Count(),
		CustomerEmail: hold.CustomerEmail,
		HoldTime:      hold.HoldTime,
		ExpiresAt:     hold.ExpiresAt(h.HoldExpiry),
	}
}

// Routes mounts the venue API and the health check.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)

	r.Route("/api/venue", func(r chi.Router) {
		r.Get("/seats/available", h.AvailableSeats)
		r.Get("/seats/stream", h.StreamSeatEvents)

		r.Route("/holds", func(r chi.Router) {
			r.Post("/", h.HoldSeats)
			r.Get("/{holdId}", h.GetHold)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.ReserveSeats)
			r.Get("/{reservationId}", h.GetReservation)
			r.Get("/{reservationId}/qr", h.GetReservationQR)
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if h.Logger != nil {
			h.Logger.LogAPI(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		}
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

func (h *Handler) AvailableSeats(w http.ResponseWriter, r *http.Request) {
	available, err := h.Service.AvailableSeatCount(r.Context())
	if err != nil {
		h.writeError(w, "AvailableSeats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Seats available", map[string]int{"available": available}))
}

func (h *Handler) HoldSeats(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	hold, err := h.Service.FindAndHoldSeats(r.Context(), req.NumSeats, req.CustomerEmail)
	if err != nil {
		h.writeError(w, "HoldSeats", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Seats held", h.toHoldResponse(hold)))
}

func (h *Handler) GetHold(w http.ResponseWriter, r *http.Request) {
	holdID, err := strconv.ParseInt(chi.URLParam(r, "holdId"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid hold id", err.Error()))
		return
	}

	hold, err := h.Service.GetHold(r.Context(), holdID)
	if err != nil {
		h.writeError(w, "GetHold", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Seat hold", h.toHoldResponse(hold)))
}

// ReserveSeats confirms a hold. seat_hold_id may be omitted to confirm the
// customer's hold by email alone.
func (h *Handler) ReserveSeats(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	reservationID, err := h.Service.ReserveSeats(r.Context(), req.SeatHoldID, req.CustomerEmail)
	if err != nil {
		h.writeError(w, "ReserveSeats", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Seats reserved", map[string]string{"reservation_id": reservationID}))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.Service.GetReservation(r.Context(), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.writeError(w, "GetReservation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Reservation", reservation))
}

func (h *Handler) GetReservationQR(w http.ResponseWriter, r *http.Request) {
	if h.QRGenerator == nil {
		h.writeJSON(w, http.StatusNotImplemented, utils.ErrorResponse("QR confirmations are disabled", "no QR secret configured"))
		return
	}

	reservation, err := h.Service.GetReservation(r.Context(), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.writeError(w, "GetReservationQR", err)
		return
	}

	png, err := h.QRGenerator.GenerateEncryptedQR(reservation)
	if err != nil {
		h.logError(fmt.Sprintf("GetReservationQR: failed to render QR for %s: %v", reservation.ID, err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render QR code", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// StreamSeatEvents sends every seat status event as a server-sent event
// until the client goes away.
func (h *Handler) StreamSeatEvents(w http.ResponseWriter, r *http.Request) {
	if h.Stream == nil {
		h.writeJSON(w, http.StatusNotImplemented, utils.ErrorResponse("Seat stream is disabled", "no stream configured"))
		return
	}

	ctx := r.Context()
	events := h.Stream.Subscribe(ctx)

	rc := http.NewResponseController(w)
	// the server write timeout would otherwise cut long-lived streams
	_ = rc.SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logError(fmt.Sprintf("StreamSeatEvents: streaming unsupported: %v", err))
		return
	}

	for {
		select {
		case payload, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: seat-status\ndata: %s\n\n", payload)
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ctx.Done():
			if h.Logger != nil {
				h.Logger.Debug("SSE", "Client disconnected from seat stream")
			}
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// statusFor maps service errors to HTTP status codes and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrInsufficientInventory):
		return http.StatusConflict, "INSUFFICIENT_INVENTORY"
	case errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, booking.ErrDuplicateHold):
		return http.StatusConflict, "DUPLICATE_HOLD"
	case errors.Is(err, booking.ErrDuplicateReservation):
		return http.StatusConflict, "DUPLICATE_RESERVATION"
	case errors.Is(err, booking.ErrHoldNotFound):
		return http.StatusNotFound, "HOLD_NOT_FOUND"
	case errors.Is(err, booking.ErrReservationNotFound):
		return http.StatusNotFound, "RESERVATION_NOT_FOUND"
	case booking.IsRetryable(err):
		return http.StatusServiceUnavailable, "TRANSIENT"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logError(fmt.Sprintf("%s: %v", op, err))
	}
	resp := utils.ErrorResponse("Request failed", err.Error())
	resp.Code = code
	resp.Retryable = status == http.StatusServiceUnavailable
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.logError(fmt.Sprintf("failed to encode response: %v", err))
	}
}

func (h *Handler) logError(message string) {
	if h.Logger != nil {
		h.Logger.Error("API", message)
	}
}
