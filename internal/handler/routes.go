package handler

import "net/http"

// Handlers bundles every HTTP handler of the service
type Handlers struct {
	Folders  *FolderHandler
	Files    *FileHandler
	Progress *ProgressHandler
	Health   *HealthHandler
}

// Register adds every route to mux (Go 1.22+ enhanced patterns)
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health.Health)

	// Folder routes
	mux.HandleFunc("POST /api/folder/create", h.Folders.CreateFolder)
	mux.HandleFunc("GET /api/folder/list", h.Folders.ListFolders)
	mux.HandleFunc("GET /api/folder/root", h.Folders.GetRootContents)
	mux.HandleFunc("GET /api/folder/{id}", h.Folders.GetFolder)
	mux.HandleFunc("PATCH /api/folder/update/{id}", h.Folders.UpdateFolder)
	mux.HandleFunc("DELETE /api/folder/delete/{id}", h.Folders.DeleteFolder)
	mux.HandleFunc("GET /api/folder/sub-folders/{id}", h.Folders.GetSubFolders)

	// File routes
	mux.HandleFunc("POST /api/file/upload", h.Files.Upload)
	mux.HandleFunc("GET /api/file/{id}", h.Files.Download)
	mux.HandleFunc("DELETE /api/file/{id}", h.Files.DeleteFile)

	// Progress stream
	mux.HandleFunc("GET /api/progress", h.Progress.Stream)
}
