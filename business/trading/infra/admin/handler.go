// Package admin exposes the operator endpoints for stuck positions.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apm"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
	"github.com/fd1az/brl-arbitrage-bot/internal/health"
)

// StuckManager lists and clears stuck positions. *app.Engine implements it.
type StuckManager interface {
	Stuck() []domain.StuckPosition
	ClearStuck(ctx context.Context, venue pricingDomain.Venue, asset string) (domain.StuckPosition, bool)
}

// StuckView is the JSON shape of one stuck position.
type StuckView struct {
	domain.StuckPosition
	Symbol string `json:"symbol"`
}

// writeError renders err with its status code and the request's trace id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	appErr.WithTraceID(apm.TraceID(r.Context()))
	health.WriteJSON(w, appErr.StatusCode, appErr.ToResponse())
}

// Routes mounts GET /stuck and DELETE /stuck on mux.
func Routes(mux interface {
	Handle(pattern string, handler http.Handler)
}, m StuckManager) {
	mux.Handle("GET /stuck", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		positions := m.Stuck()
		out := make([]StuckView, 0, len(positions))
		for _, p := range positions {
			out = append(out, StuckView{StuckPosition: p, Symbol: p.Symbol.String()})
		}
		health.WriteJSON(w, http.StatusOK, out)
	}))

	mux.Handle("DELETE /stuck", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		venue, err := pricingDomain.ParseVenue(r.URL.Query().Get("venue"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		asset := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("asset")))
		if asset == "" {
			writeError(w, r, apperror.Validation(apperror.CodeRequiredField, "asset"))
			return
		}

		pos, ok := m.ClearStuck(r.Context(), venue, asset)
		if !ok {
			writeError(w, r, apperror.NotFound(apperror.CodeNotFound, "stuck position "+venue.String()+":"+asset))
			return
		}
		health.WriteJSON(w, http.StatusOK, StuckView{StuckPosition: pos, Symbol: pos.Symbol.String()})
	}))
}
