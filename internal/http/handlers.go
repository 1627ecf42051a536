package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	mongoadapter "github.com/VVKrauss/Hub-3-sub002/internal/adapters/mongo"
	"github.com/VVKrauss/Hub-3-sub002/internal/adapters/postgres"
	redisadapter "github.com/VVKrauss/Hub-3-sub002/internal/adapters/redis"
	s3adapter "github.com/VVKrauss/Hub-3-sub002/internal/adapters/s3"
	"github.com/VVKrauss/Hub-3-sub002/internal/config"
	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
	"github.com/VVKrauss/Hub-3-sub002/internal/export"
	"github.com/VVKrauss/Hub-3-sub002/internal/idempotency"
	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

type Handlers struct {
	cfg    *config.Config
	repo   *postgres.Repository
	redis  *redisadapter.Cache
	idemp  *idempotency.Idempotency
	audit  *mongoadapter.AuditLogger
	media  *s3adapter.MediaStore
	logger observability.Logger
}

func NewHandlers(cfg *config.Config, repo *postgres.Repository, redis *redisadapter.Cache, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger, media *s3adapter.MediaStore, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		repo:   repo,
		redis:  redis,
		idemp:  idemp,
		audit:  audit,
		media:  media,
		logger: logger,
	}
}

func respond(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

// writeError maps domain sentinels to HTTP statuses so callers can tell a
// missing row from a capacity rejection from a transport failure.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrCapacityExceeded):
		observability.CapacityRejections.Inc()
		respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSerializationFailure):
		respond(w, http.StatusConflict, map[string]string{"error": "conflict, try again"})
	case errors.Is(err, domain.ErrInvalidInput):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func urlID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func actor(r *http.Request) string {
	if v := r.Header.Get("X-Admin-User"); v != "" {
		return v
	}
	return "anonymous"
}

// --- registrations ---

func (h *Handlers) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	f, page, limit, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.repo.List(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]registrationJSON, 0, len(result.Items))
	for _, reg := range result.Items {
		items = append(items, toRegistrationJSON(reg))
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": result.Total,
		"page":  result.Page,
		"limit": result.Limit,
	})
}

type createTicketRequest struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

type createRegistrationRequest struct {
	EventID             uuid.UUID             `json:"event_id"`
	UserID              *uuid.UUID            `json:"user_id"`
	ExternalID          string                `json:"external_id"`
	FullName            string                `json:"full_name"`
	Email               string                `json:"email"`
	Phone               string                `json:"phone"`
	AdultTickets        int                   `json:"adult_tickets"`
	ChildTickets        int                   `json:"child_tickets"`
	TotalAmount         float64               `json:"total_amount"`
	Currency            string                `json:"currency"`
	Notes               string                `json:"notes"`
	SpecialRequirements string                `json:"special_requirements"`
	RegistrationStatus  string                `json:"registration_status"`
	RegistrationType    string                `json:"registration_type"`
	Tickets             []createTicketRequest `json:"tickets"`
}

func (h *Handlers) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req createRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.EventID == uuid.Nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "event_id is required"))
		return
	}
	if req.FullName == "" && req.Email == "" {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "full_name or email is required"))
		return
	}

	reg := domain.NewRegistration(domain.Registration{
		EventID:             req.EventID,
		UserID:              req.UserID,
		ExternalID:          req.ExternalID,
		FullName:            req.FullName,
		Email:               req.Email,
		Phone:               req.Phone,
		AdultTickets:        req.AdultTickets,
		ChildTickets:        req.ChildTickets,
		TotalAmount:         req.TotalAmount,
		Currency:            req.Currency,
		Notes:               req.Notes,
		SpecialRequirements: req.SpecialRequirements,
		RegistrationStatus:  domain.RegistrationStatus(req.RegistrationStatus),
		RegistrationType:    domain.RegistrationType(req.RegistrationType),
	})
	tickets := make([]domain.Ticket, 0, len(req.Tickets))
	if len(req.Tickets) > 0 {
		reg.TotalAmount = 0
		for _, item := range req.Tickets {
			t := domain.NewTicket(reg.ID, domain.Ticket{
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.TotalPrice,
				Currency:   item.Currency,
			})
			if t.Currency == "" {
				t.Currency = reg.Currency
			}
			tickets = append(tickets, t)
			reg.TotalAmount += t.TotalPrice
		}
	}

	// Short per-event lock so concurrent creations for a busy event queue up
	// instead of piling serialization retries onto the database.
	owner := reg.ID.String()
	locked, err := h.redis.AcquireEventLock(r.Context(), reg.EventID.String(), owner, h.cfg.CapacityHold)
	if err != nil {
		writeError(w, err)
		return
	}
	if !locked {
		writeError(w, domain.ErrConflict)
		return
	}
	defer h.redis.ReleaseEventLock(r.Context(), reg.EventID.String(), owner)

	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if reg.RegistrationStatus == domain.RegistrationActive {
			if _, err := h.repo.ReserveCapacity(r.Context(), tx, reg.EventID, reg.Seats()); err != nil {
				return err
			}
		}
		if err := h.repo.Create(r.Context(), tx, reg, tickets); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"registration_id": reg.ID,
			"event_id":        reg.EventID,
			"status":          reg.RegistrationStatus,
			"seats":           reg.Seats(),
		})
		return h.repo.InsertOutbox(r.Context(), tx, postgres.NewOutboxRecord(reg.ID, "registration.created", payload))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.repo.GetByID(r.Context(), reg.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit.LogCreated(r.Context(), *created, actor(r))

	data := respond(w, http.StatusCreated, toRegistrationJSON(*created))
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

func (h *Handlers) GetRegistrationByQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	reg, err := h.repo.GetByQRCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

type patchRegistrationRequest struct {
	EventID             *uuid.UUID `json:"event_id"`
	UserID              *uuid.UUID `json:"user_id"`
	ExternalID          *string    `json:"external_id"`
	FullName            *string    `json:"full_name"`
	Email               *string    `json:"email"`
	Phone               *string    `json:"phone"`
	AdultTickets        *int       `json:"adult_tickets"`
	ChildTickets        *int       `json:"child_tickets"`
	TotalAmount         *float64   `json:"total_amount"`
	Currency            *string    `json:"currency"`
	Notes               *string    `json:"notes"`
	SpecialRequirements *string    `json:"special_requirements"`
	PaymentStatus       *string    `json:"payment_status"`
	RegistrationType    *string    `json:"registration_type"`
}

func (h *Handlers) PatchRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req patchRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	patch := postgres.RegistrationPatch{
		EventID:             req.EventID,
		UserID:              req.UserID,
		ExternalID:          req.ExternalID,
		FullName:            req.FullName,
		Email:               req.Email,
		Phone:               req.Phone,
		AdultTickets:        req.AdultTickets,
		ChildTickets:        req.ChildTickets,
		TotalAmount:         req.TotalAmount,
		Currency:            req.Currency,
		Notes:               req.Notes,
		SpecialRequirements: req.SpecialRequirements,
	}
	if req.PaymentStatus != nil {
		s := domain.PaymentStatus(*req.PaymentStatus)
		if !domain.ValidPaymentStatus(s) {
			writeError(w, errors.Wrap(domain.ErrInvalidInput, "payment_status"))
			return
		}
		patch.PaymentStatus = &s
	}
	if req.RegistrationType != nil {
		t := domain.RegistrationType(*req.RegistrationType)
		patch.RegistrationType = &t
	}

	if err := h.repo.Update(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}
	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

type reasonRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func (r reasonRequest) text() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Note
}

func (h *Handlers) statusTransition(w http.ResponseWriter, r *http.Request, eventType string, fn func(tx pgx.Tx, id uuid.UUID, note string) error) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req reasonRequest
	json.NewDecoder(r.Body).Decode(&req) // body is optional

	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if err := fn(tx, id, req.text()); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{"registration_id": id, "reason": req.text()})
		return h.repo.InsertOutbox(r.Context(), tx, postgres.NewOutboxRecord(id, eventType, payload))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit.LogStatusChange(r.Context(), id, actor(r), reg.RegistrationStatus, req.text())
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

func (h *Handlers) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, "registration.cancelled", func(tx pgx.Tx, id uuid.UUID, note string) error {
		return h.repo.Cancel(r.Context(), tx, id, note)
	})
}

// RestoreRegistration re-validates capacity before flipping the registration
// back to active, so restores cannot oversell the event.
func (h *Handlers) RestoreRegistration(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, "registration.restored", func(tx pgx.Tx, id uuid.UUID, note string) error {
		var eventID uuid.UUID
		var adults, children int
		err := tx.QueryRow(r.Context(), `
			SELECT event_id, adult_tickets, child_tickets
			FROM sh_registrations WHERE id = $1 FOR UPDATE
		`, id).Scan(&eventID, &adults, &children)
		if err != nil {
			return domain.ErrNotFound
		}
		if _, err := h.repo.ReserveCapacity(r.Context(), tx, eventID, adults+children); err != nil {
			return err
		}
		return h.repo.Restore(r.Context(), tx, id, note)
	})
}

func (h *Handlers) PromoteRegistration(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, "waitlist.promoted", func(tx pgx.Tx, id uuid.UUID, note string) error {
		_, err := h.repo.PromoteFromWaitlist(r.Context(), tx, id, note)
		return err
	})
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.repo.ConfirmPayment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

func (h *Handlers) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req reasonRequest
	json.NewDecoder(r.Body).Decode(&req)
	if err := h.repo.MarkAttendance(r.Context(), id, req.text()); err != nil {
		writeError(w, err)
		return
	}
	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toRegistrationJSON(*reg))
}

type bulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids"`
	Status string      `json:"status"`
	Note   string      `json:"note"`
}

func (h *Handlers) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "ids are required"))
		return
	}

	var affected int64
	err := h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		var err error
		affected, err = h.repo.BulkUpdateStatus(r.Context(), tx, req.IDs, domain.RegistrationStatus(req.Status), req.Note)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"affected": affected})
}

// --- tickets ---

func (h *Handlers) AddTicket(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ticket := domain.NewTicket(id, domain.Ticket{
		Name:       req.Name,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		TotalPrice: req.TotalPrice,
		Currency:   req.Currency,
	})

	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.repo.AddTicket(r.Context(), tx, ticket)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	reg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, toRegistrationJSON(*reg))
}

func (h *Handlers) RemoveTicket(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.repo.RemoveTicket(r.Context(), tx, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type qrCodesRequest struct {
	Count int `json:"count"`
}

// GenerateTicketQRCodes replaces the ticket's per-seat tokens wholesale.
func (h *Handlers) GenerateTicketQRCodes(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req qrCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Count < 1 || req.Count > 100 {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "count must be between 1 and 100"))
		return
	}

	codes := domain.NewTicketQRCodes(id, req.Count)
	if err := h.repo.SetTicketQRCodes(r.Context(), id, codes); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"qr_codes": codes})
}

// --- events ---

func (h *Handlers) EventAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	spots, _ := strconv.Atoi(r.URL.Query().Get("spots"))
	if spots < 1 {
		spots = 1
	}
	av, err := h.repo.CheckAvailability(r.Context(), id, spots)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"available":       av.Available,
		"max_attendees":   av.MaxAttendees,
		"current_seats":   av.CurrentSeats,
		"remaining_spots": av.RemainingSpots,
	})
}

func (h *Handlers) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	regs, err := h.repo.ListForExport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := export.Registrations(regs)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations_`+id.String()+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UploadEventMedia stores a cover or gallery file under the event's media
// prefix and returns its public URL.
func (h *Handlers) UploadEventMedia(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	slug, err := h.repo.EventSlug(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	folder := r.URL.Query().Get("folder")
	if folder != s3adapter.FolderCover {
		folder = s3adapter.FolderMedia
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	contentType, ok := s3adapter.AllowedMediaType(header.Filename)
	if !ok {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "unsupported media type"))
		return
	}

	key := s3adapter.ObjectKey(slug, folder, header.Filename)
	url, err := h.media.Upload(r.Context(), key, contentType, file)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"key": key, "url": url})
}

// --- health ---

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Pool().Ping(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
