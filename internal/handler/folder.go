package handler

import (
	"log/slog"
	"net/http"

	"foldervault/internal/config"
	"foldervault/internal/domain/services"
	"foldervault/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService services.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService services.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folder/create
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err, "Parent folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder created successfully.", folder)
}

// GetFolder retrieves a folder by ID
// GET /api/folder/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Folder")
	if !ok {
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder fetched successfully.", folder)
}

// ListFolders lists root folders with paging, sorting and filters
// GET /api/folder/list?page=&limit=&sortBy=&name=&description=
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.QueryInt(r, "page", config.DefaultPage)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := httputil.QueryInt(r, "limit", config.DefaultLimit)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	listing, err := h.folderService.ListFolders(r.Context(), &services.ListFoldersRequest{
		Page:        page,
		Limit:       limit,
		SortBy:      query.Get("sortBy"),
		Name:        query.Get("name"),
		Description: query.Get("description"),
	})
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folders fetched successfully.", listing)
}

// UpdateFolder renames a folder or changes its description
// PATCH /api/folder/update/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Folder")
	if !ok {
		return
	}

	var req services.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder updated successfully.", folder)
}

// DeleteFolder deletes a folder with its whole subtree
// DELETE /api/folder/delete/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Folder")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), id); err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder deleted successfully.", nil)
}

// GetSubFolders lists the direct child folders and files of a folder
// GET /api/folder/sub-folders/{id}
func (h *FolderHandler) GetSubFolders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Folder")
	if !ok {
		return
	}

	contents, err := h.folderService.GetChildren(r.Context(), &id)
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Sub Folders fetched successfully.", contents)
}

// GetRootContents lists the folders and files at the storage root
// GET /api/folder/root
func (h *FolderHandler) GetRootContents(w http.ResponseWriter, r *http.Request) {
	contents, err := h.folderService.GetChildren(r.Context(), nil)
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Root contents fetched successfully.", contents)
}
