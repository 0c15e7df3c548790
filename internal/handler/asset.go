package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
)

type AssetHandler struct {
	assets  AssetAPI
	publish PublishAPI
}

func NewAssetHandler(assets AssetAPI, publish PublishAPI) *AssetHandler {
	return &AssetHandler{assets: assets, publish: publish}
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// page reads ?limit and ?offset. Oversized limits are clamped rather than
// rejected; garbage falls back to the defaults.
func page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	offset, err = strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

type createAssetRequest struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req createAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	asset, err := h.assets.Create(r.Context(), *identity, req.Filename, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	limit, offset := page(r)
	scope := model.AssetScope(r.URL.Query().Get("owner"))

	assets, err := h.assets.List(r.Context(), *identity, scope, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assets": assets,
		"limit":  limit,
		"offset": offset,
	})
}

type publishResponse struct {
	Success       bool   `json:"success"`
	RemoteAssetID string `json:"remoteAssetId,omitempty"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

// Publish relays the asset to the caller's channel. The request blocks until
// the upload finishes or fails.
func (h *AssetHandler) Publish(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	assetID := chi.URLParam(r, "assetId")

	var req model.PublishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.publish.Publish(r.Context(), *identity, assetID, req)
	if err != nil {
		writePublishError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{
		Success:       true,
		RemoteAssetID: result.RemoteAssetID,
	})
}
