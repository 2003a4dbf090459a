package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	platformlogging "github.com/assessio/assessio-backend/platform/go/logging"
	"github.com/assessio/assessio-backend/platform/go/persistence"
	"github.com/assessio/assessio-backend/platform/go/tenant"
)

// CandidatesHandler serves tenant-scoped reads. It exists mainly to show the
// sanctioned access pattern: resolve the Space from context, then run every
// query through TenantDB.WithTenant with unqualified table names.
type CandidatesHandler struct {
	db     *persistence.TenantDB
	logger *zap.Logger
}

func NewCandidatesHandler(db *persistence.TenantDB, logger *zap.Logger) *CandidatesHandler {
	if db == nil {
		panic("candidates handler requires tenant db")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &CandidatesHandler{db: db, logger: logger}
}

type candidateResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName,omitempty"`
	InvitedAt time.Time `json:"invitedAt"`
}

// List returns the candidates of the requesting organization only; rows of
// every other tenant live in other schemas and are unreachable here.
func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		http.Error(w, "tenant context required", http.StatusUnauthorized)
		return
	}

	var items []candidateResponse
	err := h.db.WithTenant(r.Context(), space.SchemaName, func(tx pgx.Tx) error {
		rows, err := tx.Query(r.Context(),
			"SELECT id, email, full_name, invited_at FROM candidates ORDER BY invited_at DESC LIMIT 100")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c candidateResponse
			if err := rows.Scan(&c.ID, &c.Email, &c.FullName, &c.InvitedAt); err != nil {
				return err
			}
			items = append(items, c)
		}
		return rows.Err()
	})
	if err != nil {
		platformlogging.FromRequest(r, h.logger).Error("list candidates",
			zap.String("schema", space.SchemaName),
			zap.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if items == nil {
		items = []candidateResponse{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
