package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nurulabs/roiprojector/internal/logger"
	"github.com/nurulabs/roiprojector/projector"
)

// Session handling is a plain storage wrapper around the core, so the
// SQL lives here rather than behind the projector store interface.

// createSession stores a context snapshot for downstream handoff and
// returns the new session id.
func (s *Server) createSession(projectionID int64, res *projector.ProjectionResult) (string, error) {
	sessionID := uuid.NewString()

	userContext := map[string]any{
		"company_name":            res.Input.CompanyName,
		"industry":                res.Input.Industry,
		"process_name":            res.Input.ProcessName,
		"annual_savings":          res.Savings.AnnualSavings,
		"roi_percentage":          res.Savings.ROIPercentage,
		"breakeven_months":        res.Savings.BreakevenMonths,
		"implementation_cost":     res.WithAI.ImplementationCost,
		"risk_level":              res.Assessment.RiskLevel,
		"recommendation":          res.Assessment.Recommendation,
		"projection_completed_at": time.Now().UTC().Format(time.RFC3339),
	}
	contextJSON, err := json.Marshal(userContext)
	if err != nil {
		return "", fmt.Errorf("failed to encode session context: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (session_id, projection_id, user_context, expires_at)
		VALUES ($1, $2, $3, NOW() + make_interval(hours => $4))
	`, sessionID, projectionID, contextJSON, s.cfg.SessionTTLHours)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	return sessionID, nil
}

// handleSession returns the stored projection context for an unexpired
// session and bumps its access tracking.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var contextJSON []byte
	err := s.db.QueryRow(`
		SELECT user_context
		FROM sessions
		WHERE session_id = $1 AND expires_at > NOW()
	`, sessionID).Scan(&contextJSON)

	if err == sql.ErrNoRows {
		respondError(w, http.StatusNotFound, "session not found or expired", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session", err)
		return
	}

	if _, err := s.db.Exec(`
		UPDATE sessions
		SET accessed_count = accessed_count + 1,
			last_accessed = NOW()
		WHERE session_id = $1
	`, sessionID); err != nil {
		// Access tracking is best effort; the context is still valid.
		logger.Warn("failed to update session access tracking", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(contextJSON)
}
