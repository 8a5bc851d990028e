package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"

	"github.com/whitematrix/eballot/pkg/auth"
	"github.com/whitematrix/eballot/pkg/httputil"
	"github.com/whitematrix/eballot/pkg/store"
)

// linkedinURLPattern accepts personal, legacy public, and company profile
// paths on linkedin.com, with or without scheme and www
var linkedinURLPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.)?linkedin\.com/(in|pub|company)/.+$`)

type updateLinkedInRequest struct {
	LinkedInURL string `json:"linkedinUrl"`
}

// handleCandidates returns all candidates with tallies recomputed from user
// records; the denormalized counter is never served.
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.candidates.ListWithTallies(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list candidates")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, candidates)
}

// handleVoters returns the public roster of users who have voted
func (s *Server) handleVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := s.users.ListVoters(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list voters")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, voters)
}

// handleLinkedInRedirect bounces the browser to a voter's stored profile URL.
// Serving the redirect server-side keeps profile URLs out of the roster
// markup and strips the referrer.
func (s *Server) handleLinkedInRedirect(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to load user for profile redirect")
		httputil.WriteInternalError(w)
		return
	}
	if u.LinkedInURL == "" {
		httputil.WriteNotFoundError(w, "User has no profile URL")
		return
	}

	w.Header().Set("Referrer-Policy", "no-referrer")
	http.Redirect(w, r, u.LinkedInURL, http.StatusFound)
}

// handleUpdateLinkedIn sets the caller's professional profile URL
func (s *Server) handleUpdateLinkedIn(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentity(r)

	var req updateLinkedInRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.LinkedInURL, "linkedinUrl") {
		return
	}
	if !linkedinURLPattern.MatchString(req.LinkedInURL) {
		httputil.WriteBadRequest(w, "Please provide a valid LinkedIn profile URL")
		return
	}

	if err := s.users.UpdateLinkedIn(r.Context(), ident.UserID, req.LinkedInURL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to update profile URL")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"success": true,
		"message": "LinkedIn profile updated",
	})
}

// handleVote casts the caller's single ballot. Gate checks read the
// authoritative user record, never the session payload; the write itself is a
// conditional update so concurrent attempts cannot double-count.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentity(r)
	candidateID := mux.Vars(r)["candidateId"]

	u, err := s.users.Get(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to load user for vote")
		httputil.WriteInternalError(w)
		return
	}

	if u.LinkedInURL == "" {
		s.metrics.VotesRejectedTotal.WithLabelValues("linkedin_required").Inc()
		httputil.WriteJSON(w, http.StatusForbidden, map[string]interface{}{
			"message":          "Please add your LinkedIn profile before voting",
			"linkedinRequired": true,
		})
		return
	}

	if _, err := s.candidates.Get(r.Context(), candidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.VotesRejectedTotal.WithLabelValues("unknown_candidate").Inc()
			httputil.WriteNotFoundError(w, "Candidate not found")
			return
		}
		s.logger.WithError(err).Error("failed to load candidate for vote")
		httputil.WriteInternalError(w)
		return
	}

	if err := s.users.CastVote(r.Context(), u.ID, candidateID); err != nil {
		if errors.Is(err, store.ErrAlreadyVoted) {
			s.metrics.VotesRejectedTotal.WithLabelValues("already_voted").Inc()
			httputil.WriteBadRequest(w, "You have already voted")
			return
		}
		s.logger.WithError(err).Error("failed to cast vote")
		httputil.WriteInternalError(w)
		return
	}
	s.metrics.VotesCastTotal.Inc()

	// The counter is a display hint; tallies below are recomputed regardless
	if err := s.candidates.IncrementVoteCount(r.Context(), candidateID); err != nil {
		s.logger.WithError(err).WithField("candidate_id", candidateID).
			Warn("failed to bump vote counter")
	}

	candidates, err := s.candidates.ListWithTallies(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list candidates after vote")
		httputil.WriteInternalError(w)
		return
	}
	voters, err := s.users.ListVoters(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list voters after vote")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"success":    true,
		"message":    "Vote recorded",
		"candidates": candidates,
		"voters":     voters,
	})
}
