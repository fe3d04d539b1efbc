package dbentry

import (
	"errors"
	"io"
	"net/http"

	"BitcaskDB/internal/application/service"
	"BitcaskDB/internal/domain"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
)

type DbEntryHandler struct {
	saveService   *service.SaveEntryService
	deleteService *service.DeleteEntryService
	getService    *service.GetEntryService
}

func NewDbEntryHandler(saveService *service.SaveEntryService,
	deleteService *service.DeleteEntryService,
	getService *service.GetEntryService) *DbEntryHandler {
	return &DbEntryHandler{
		saveService:   saveService,
		deleteService: deleteService,
		getService:    getService,
	}
}

func MapToEntryResponse(e domain.DbEntry) EntryResponse {
	return EntryResponse{
		Key:       e.Key(),
		Value:     e.Value(),
		Tombstone: e.Tombstone(),
	}
}

func (h *DbEntryHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var request SaveEntryRequest
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &request)
	}
	if err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	result := h.saveService.Execute(service.SaveEntryCommand{
		Key:   key,
		Value: request.Value,
	})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntry(w, http.StatusCreated, result.Entry)
}

func (h *DbEntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	result := h.getService.Execute(service.GetEntryQuery{
		Key: key,
	})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	if !result.Found {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	writeEntry(w, http.StatusOK, result.Entry)
}

func (h *DbEntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	result := h.deleteService.Execute(service.DeleteEntryCommand{
		Key: key,
	})
	if result.Err != nil {
		if errors.Is(result.Err, domain.ErrKeyNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntry(w, http.StatusOK, result.Entry)
}

func writeEntry(w http.ResponseWriter, status int, entry domain.DbEntry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	output, _ := json.Marshal(MapToEntryResponse(entry))
	w.Write(output)
}
