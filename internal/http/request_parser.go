package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fleetledger/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// createTransactionRequest is the body of POST /api/transactions. Only
// structural rules live in the tags; existence and date-window checks
// belong to the ledger validator.
type createTransactionRequest struct {
	VehicleID       string      `json:"vehicleId" validate:"max=64"`
	TransactionType string      `json:"transactionType" validate:"required,oneof=revenue expense"`
	Category        string      `json:"category" validate:"max=100"`
	Amount          *core.Money `json:"amount"`
	Date            string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description     string      `json:"description" validate:"max=500"`
	EmployeeID      *string     `json:"employeeId" validate:"omitempty,max=64"`
	InvoiceID       *string     `json:"invoiceId" validate:"omitempty,max=64"`
	PurchaseOrderID *string     `json:"purchaseOrderId" validate:"omitempty,max=64"`
	QuoteID         *string     `json:"quoteId" validate:"omitempty,max=64"`
}

func (req createTransactionRequest) toInput() core.TransactionInput {
	in := core.TransactionInput{
		VehicleID:       req.VehicleID,
		Type:            core.TransactionType(req.TransactionType),
		Category:        req.Category,
		Description:     req.Description,
		EmployeeID:      req.EmployeeID,
		InvoiceID:       req.InvoiceID,
		PurchaseOrderID: req.PurchaseOrderID,
		QuoteID:         req.QuoteID,
	}
	if req.Amount != nil {
		in.Amount = *req.Amount
	}
	if req.Date != "" {
		// Format already checked by the datetime tag.
		in.Date, _ = core.ParseDate(req.Date)
	}
	return in
}

// patchTransactionRequest is the body of PATCH /api/transactions/{id}.
// Absent fields stay untouched; references may be cleared with null.
type patchTransactionRequest struct {
	VehicleID       *string          `json:"vehicleId" validate:"omitempty,max=64"`
	TransactionType *string          `json:"transactionType" validate:"omitempty,oneof=revenue expense"`
	Category        *string          `json:"category" validate:"omitempty,max=100"`
	Amount          *core.Money      `json:"amount"`
	Date            *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description     *string          `json:"description" validate:"omitempty,max=500"`
	EmployeeID      core.OptionalRef `json:"employeeId"`
	InvoiceID       core.OptionalRef `json:"invoiceId"`
	PurchaseOrderID core.OptionalRef `json:"purchaseOrderId"`
	QuoteID         core.OptionalRef `json:"quoteId"`
}

func (req patchTransactionRequest) toPatch() core.TransactionPatch {
	patch := core.TransactionPatch{
		VehicleID:       req.VehicleID,
		Category:        req.Category,
		Amount:          req.Amount,
		Description:     req.Description,
		EmployeeID:      req.EmployeeID,
		InvoiceID:       req.InvoiceID,
		PurchaseOrderID: req.PurchaseOrderID,
		QuoteID:         req.QuoteID,
	}
	if req.TransactionType != nil {
		t := core.TransactionType(*req.TransactionType)
		patch.Type = &t
	}
	if req.Date != nil {
		d, _ := core.ParseDate(*req.Date)
		patch.Date = &d
	}
	return patch
}

// decodeJSON reads one JSON object from the body into dst and runs the
// struct validation. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &requestError{msg: "Request body must contain a single JSON object"}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return &requestError{msg: "Request body is empty"}
	case errors.As(err, &syntaxErr):
		return &requestError{msg: fmt.Sprintf("Malformed JSON at offset %d", syntaxErr.Offset)}
	case errors.As(err, &typeErr):
		return &requestError{msg: fmt.Sprintf("Field %q has the wrong type", typeErr.Field)}
	case errors.As(err, &maxErr):
		return &requestError{msg: "Request body too large"}
	case errors.Is(err, core.ErrAmountPrecision):
		return &requestError{msg: "Amount must have at most two decimal places", fields: map[string]string{"amount": "decimals"}}
	case errors.Is(err, core.ErrInvalidAmount):
		return &requestError{msg: "Amount must be a decimal number", fields: map[string]string{"amount": "decimal"}}
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return &requestError{msg: "Unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")}
	default:
		return &requestError{msg: "Malformed request body: " + err.Error()}
	}
}

// validationError flattens validator failures into field -> tag pairs
// keyed by the JSON name.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &requestError{msg: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonName(fe.Field())
		fields[name] = fe.Tag()
		names = append(names, name)
	}
	sort.Strings(names)
	return &requestError{
		msg:    "Invalid request fields: " + strings.Join(names, ", "),
		fields: fields,
	}
}

var jsonNames = map[string]string{
	"VehicleID":       "vehicleId",
	"TransactionType": "transactionType",
	"Category":        "category",
	"Amount":          "amount",
	"Date":            "date",
	"Description":     "description",
	"EmployeeID":      "employeeId",
	"InvoiceID":       "invoiceId",
	"PurchaseOrderID": "purchaseOrderId",
	"QuoteID":         "quoteId",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}

// parseAsOf reads the optional asOf=YYYY-MM-DD query parameter.
func parseAsOf(query url.Values) (*time.Time, error) {
	v := strings.TrimSpace(query.Get("asOf"))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, &core.RangeError{Message: fmt.Sprintf("Invalid asOf %q: expected YYYY-MM-DD", v)}
	}
	t := d.Time
	return &t, nil
}

// parseVehicleIDs accepts both repeated vehicleId parameters and
// comma-separated lists.
func parseVehicleIDs(query url.Values) []string {
	var ids []string
	for _, raw := range query["vehicleId"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
