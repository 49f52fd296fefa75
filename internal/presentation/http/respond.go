package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every JSON response.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

var (
	validate = newValidator()
	// plainText strips every tag from user supplied free text.
	plainText = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// sanitize removes markup and surrounding space. Entities produced by the
// policy are decoded again so the stored text stays plain.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// decodeJSON reads one JSON object into dst and runs its validate tags.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("malformed request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: status, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, envelope{Status: status, Message: message, Error: code, Details: details})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInsufficientStock, apperr.KindInvalidVoucher, apperr.KindInvalidTransition:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// writeError maps err once onto the HTTP taxonomy. Internal errors are logged
// with the request logger and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_request_failed",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error_kind", kind.String()),
			observability.F("error", err.Error()),
		)
	}
	if kind == apperr.KindInternal {
		writeFailure(w, status, kind.String(), "Lỗi máy chủ", nil)
		return
	}
	writeFailure(w, status, kind.String(), err.Error(), errorDetails(err))
}

func errorDetails(err error) any {
	var (
		verrs     validator.ValidationErrors
		stock     *inventory.InsufficientStockError
		voucherEr *voucher.InvalidVoucherError
		moveErr   *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			_, field, _ := strings.Cut(fe.Namespace(), ".")
			fields = append(fields, fieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
		}
		return map[string]any{"fields": fields}
	case errors.As(err, &stock):
		return map[string]any{
			"variant_id": stock.VariantID,
			"available":  stock.Available,
			"requested":  stock.Requested,
		}
	case errors.As(err, &voucherEr):
		return map[string]any{"voucher_id": voucherEr.VoucherID, "reason": voucherEr.Reason}
	case errors.As(err, &moveErr):
		return map[string]any{"from": moveErr.From, "to": moveErr.To}
	}
	return nil
}
