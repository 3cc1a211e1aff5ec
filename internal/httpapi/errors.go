package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/R3E-Network/kitty_ledger/internal/currency"
	"github.com/R3E-Network/kitty_ledger/internal/httputil"
	"github.com/R3E-Network/kitty_ledger/internal/kitties"
)

var codeStatus = map[kitties.Code]int{
	kitties.CodeNotOwner:          http.StatusForbidden,
	kitties.CodeKittyNotFound:     http.StatusNotFound,
	kitties.CodeInsufficientFunds: http.StatusPaymentRequired,
	kitties.CodeOverflow:          http.StatusInternalServerError,
	kitties.CodeInvalidGenesis:    http.StatusBadRequest,
	kitties.CodeAssetIDExists:     http.StatusConflict,
	kitties.CodeExceedMaxOwned:    http.StatusConflict,
	kitties.CodeTransferToSelf:    http.StatusConflict,
	kitties.CodeBuyerIsOwner:      http.StatusConflict,
	kitties.CodeSameGender:        http.StatusConflict,
	kitties.CodeNotForSale:        http.StatusConflict,
	kitties.CodePriceTooHigh:      http.StatusConflict,

	kitties.CodeBelowExistentialDeposit: http.StatusConflict,
}

// statusFor maps an operation error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if code := kitties.CodeOf(err); code != "" {
		if status, ok := codeStatus[code]; ok {
			return status, string(code)
		}
		return http.StatusConflict, string(code)
	}
	switch {
	case errors.Is(err, currency.ErrExistentialDeposit):
		return http.StatusBadRequest, "ExistentialDeposit"
	case errors.Is(err, currency.ErrBalanceOverflow):
		return http.StatusConflict, "BalanceOverflow"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ""
	}
	return http.StatusInternalServerError, ""
}

func (s *Server) writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("operation failed")
	}
	httputil.WriteError(w, status, code, err.Error())
}
