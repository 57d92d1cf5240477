package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:          http.StatusUnprocessableEntity,
	services.KindNotFound:            http.StatusNotFound,
	services.KindInsufficientStock:   http.StatusConflict,
	services.KindReferentialConflict: http.StatusConflict,
	services.KindEmptyCart:           http.StatusConflict,
	services.KindInvalidTransition:   http.StatusConflict,
	services.KindConflict:            http.StatusConflict,
	services.KindUnauthorized:        http.StatusUnauthorized,
}

type stockDetails struct {
	Available decimal.Decimal `json:"available"`
}

// writeError turns a service error into a JSON reply. Unknown errors are
// logged and answered with 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if errors.Is(err, gate.ErrForbidden) {
		deny(w, r)
		return
	}
	var se *services.Error
	if !errors.As(err, &se) {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", "", nil)
		return
	}
	status, known := kindStatus[se.Kind]
	if !known {
		status = http.StatusInternalServerError
	}
	var details any
	switch {
	case len(se.Fields) > 0:
		details = se.Fields
	case se.Kind == services.KindInsufficientStock:
		details = stockDetails{Available: se.Available}
	}
	httpx.JSONError(w, status, string(se.Kind), se.Message, details)
}
