package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gymops/internal/core"
	"gymops/internal/report"
	"gymops/internal/services"
)

// maxImportBytes caps an uploaded export at 50 MB.
const maxImportBytes = 50 << 20

// saleResponse is the wire shape of one sale aggregate.
type saleResponse struct {
	SaleID              string  `json:"sale_id"`
	AgreementNumber     string  `json:"agreement_number"`
	ProfitCenter        string  `json:"profit_center"`
	MemberName          string  `json:"member_name"`
	MembershipType      string  `json:"membership_type"`
	AgreementType       string  `json:"agreement_type"`
	PaymentPlan         string  `json:"agreement_payment_plan"`
	TotalAmount         float64 `json:"total_amount"`
	TransactionCount    int     `json:"transaction_count"`
	SalesPerson         string  `json:"sales_person"`
	CommissionEmployees string  `json:"commission_employees"`
	PaymentMethod       string  `json:"payment_method"`
	MainItem            string  `json:"main_item"`
	LatestPaymentDate   string  `json:"latest_payment_date"`
	ManualOverride      bool    `json:"manual_override"`
}

func toSaleResponse(s core.SaleAggregate) saleResponse {
	return saleResponse{
		SaleID:              s.SaleID,
		AgreementNumber:     s.AgreementNumber,
		ProfitCenter:        s.ProfitCenter,
		MemberName:          s.MemberName,
		MembershipType:      s.MembershipType,
		AgreementType:       s.AgreementType,
		PaymentPlan:         s.PaymentPlan,
		TotalAmount:         s.TotalAmount,
		TransactionCount:    s.TransactionCount,
		SalesPerson:         s.SalesPerson,
		CommissionEmployees: s.CommissionEmployees,
		PaymentMethod:       s.PaymentMethod,
		MainItem:            s.MainItem,
		LatestPaymentDate:   s.LatestPaymentDate,
		ManualOverride:      s.ManualOverride,
	}
}

type auditResponse struct {
	ID      int64  `json:"id"`
	SaleID  string `json:"sale_id"`
	Action  string `json:"action"`
	OldData string `json:"old_data,omitempty"`
	NewData string `json:"new_data"`
}

// handleImport ingests one CSV export from the request body. Structural
// problems in the export come back as 422; the batch is all-or-nothing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "upload.csv"
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	stats, err := s.imports.Import(r.Context(), body, source)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import failed", "source", source, "error", err)
		switch {
		case errors.Is(err, core.ErrMissingAgreement), errors.Is(err, core.ErrSaleIDCollision):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	profitCenter := strings.TrimSpace(r.URL.Query().Get("profit_center"))

	sales, err := s.sales.ListSales(r.Context(), profitCenter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List sales failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	out := make([]saleResponse, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSaleResponse(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	saleID := r.PathValue("id")

	sale, err := s.sales.GetSale(r.Context(), saleID)
	if errors.Is(err, core.ErrSaleNotFound) {
		writeError(w, http.StatusNotFound, "sale not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get sale failed", "sale_id", saleID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sale")
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

func (s *Server) handleEditSale(w http.ResponseWriter, r *http.Request) {
	saleID := r.PathValue("id")

	var edit services.SaleEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid edit payload: "+err.Error())
		return
	}

	updated, err := s.imports.EditSale(r.Context(), saleID, edit)
	if errors.Is(err, core.ErrSaleNotFound) {
		writeError(w, http.StatusNotFound, "sale not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Manual edit failed", "sale_id", saleID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply edit")
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(updated))
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	saleID := r.PathValue("id")

	entries, err := s.sales.AuditTrail(r.Context(), saleID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Audit trail failed", "sale_id", saleID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load audit trail")
		return
	}

	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			ID:      e.ID,
			SaleID:  e.SaleID,
			Action:  string(e.Action),
			OldData: e.OldData,
			NewData: e.NewData,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEFTCounts(w http.ResponseWriter, r *http.Request) {
	ref, err := refTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.reports.EFTCounts(r.Context(), ref)
	if err != nil {
		slog.ErrorContext(r.Context(), "EFT counts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute EFT counts")
		return
	}

	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleEFTDetails(w http.ResponseWriter, r *http.Request) {
	employee := r.PathValue("employee")
	period := r.PathValue("period")

	ref, err := refTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details, err := s.reports.EFTDetails(r.Context(), employee, period, ref)
	if err != nil {
		if errors.Is(err, report.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "EFT details failed",
			"employee", employee, "period", period, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute EFT details")
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleAppointmentCounts(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")

	ref, err := refTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := s.reports.AppointmentCounts(r.Context(), kind, ref)
	if err != nil {
		if errors.Is(err, report.ErrUnknownKind) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Appointment counts failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute appointment counts")
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handlePTRollup(w http.ResponseWriter, r *http.Request) {
	ref, err := refTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rollup, err := s.reports.PTRollup(r.Context(), ref)
	if err != nil {
		slog.ErrorContext(r.Context(), "PT rollup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute PT rollup")
		return
	}

	writeJSON(w, http.StatusOK, rollup)
}
