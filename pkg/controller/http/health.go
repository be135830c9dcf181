package http

import (
	"net/http"

	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// handleHealth handles health check requests
func handleHealth(uc interfaces.WorkspaceUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:   "healthy",
			Service:  "pdfdesk",
			Version:  types.Version,
			Sessions: uc.Sessions(),
		}
		writeJSON(w, r, status)
	}
}
