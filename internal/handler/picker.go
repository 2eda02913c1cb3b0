package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/httputil"
)

// PickerHandler serves the embeddable media picker. The picker is
// parameterized by a signed widget state that is verified on every request.
type PickerHandler struct {
	codec    explorerSvc.WidgetStateCodec
	contents explorerSvc.ContentsService
	logger   *slog.Logger
}

// NewPickerHandler creates a new picker handler
func NewPickerHandler(codec explorerSvc.WidgetStateCodec, contents explorerSvc.ContentsService, logger *slog.Logger) *PickerHandler {
	return &PickerHandler{
		codec:    codec,
		contents: contents,
		logger:   logger,
	}
}

// pickerRequest carries the raw widget state either as a parameter map or as
// an encoded query string, plus the view to open.
type pickerRequest struct {
	State    map[string][]string `json:"state"`
	Encoded  string              `json:"encoded"`
	FolderID *string             `json:"folder_id"`
	Type     string              `json:"type"` // switch to another allowed type
	Order    string              `json:"order"`
	Offset   int                 `json:"offset"`
	Limit    int                 `json:"limit"`
}

// pickerResponse is everything a picker needs to render its first view.
type pickerResponse struct {
	State         *models.WidgetState `json:"state"`
	SelectedType  string              `json:"selected_type"`
	Filter        models.FilterSpec   `json:"filter"`
	AllowedFilter models.FilterSpec   `json:"allowed_filter"`
	Unlimited     bool                `json:"unlimited"`
	Listing       *models.Listing     `json:"listing"`
}

// BuildPicker verifies a widget state and returns its filter parameters with the first listing
// POST /api/explorer/picker
// A tampered or malformed state rejects the whole request.
func (h *PickerHandler) BuildPicker(w http.ResponseWriter, r *http.Request) {
	var req pickerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw := url.Values(req.State)
	if req.Encoded != "" {
		parsed, err := url.ParseQuery(req.Encoded)
		if err != nil {
			handleError(w, &domain.ValidationError{Message: "encoded widget state is not a valid query string"})
			return
		}
		raw = parsed
	}

	state, err := h.codec.Decode(raw)
	if err != nil {
		h.logger.Warn("widget state rejected", "error", err, "opener_id", raw.Get(models.ParamOpenerID))
		handleError(w, err)
		return
	}

	selected := state.SelectedType
	if t := strings.TrimSpace(req.Type); t != "" {
		if !slices.Contains(state.AllowedTypes, t) {
			handleError(w, &domain.ValidationError{Message: "type " + t + " is not allowed by this picker"})
			return
		}
		selected = t
	}

	order, err := models.ParseOrderSpec(req.Order)
	if err != nil {
		handleError(w, &domain.ValidationError{Message: err.Error()})
		return
	}

	filter := models.NewFilterSpec(selected)
	listing, err := h.contents.Resolve(r.Context(), &explorerSvc.ListRequest{
		FolderID: models.NormalizeFolderID(req.FolderID),
		Filter:   filter,
		Order:    order,
		Cursor:   models.PageCursor{Offset: req.Offset, Limit: req.Limit},
		Actor:    httputil.GetActor(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, pickerResponse{
		State:         state,
		SelectedType:  selected,
		Filter:        filter,
		AllowedFilter: state.AllowedFilter(),
		Unlimited:     state.Unlimited(),
		Listing:       listing,
	})
}

// signStateRequest describes a picker instance to sign. A missing
// remaining_slots means unlimited.
type signStateRequest struct {
	OpenerID       string            `json:"opener_id"`
	AllowedTypes   []string          `json:"allowed_types"`
	SelectedType   string            `json:"selected_type"`
	RemainingSlots *int              `json:"remaining_slots"`
	OpenerContext  map[string]string `json:"opener_context"`
}

// SignState validates and signs a new widget state
// POST /api/explorer/picker/state
func (h *PickerHandler) SignState(w http.ResponseWriter, r *http.Request) {
	var req signStateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots := models.UnlimitedSlots
	if req.RemainingSlots != nil {
		slots = *req.RemainingSlots
	}

	state, err := h.codec.Encode(req.OpenerID, req.AllowedTypes, req.SelectedType, slots, req.OpenerContext)
	if err != nil {
		handleError(w, err)
		return
	}

	values := state.Values()
	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"state":   state,
		"params":  values,
		"encoded": values.Encode(),
	})
}
