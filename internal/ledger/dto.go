package ledger

import (
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// DefaultMinAmount is the smallest accepted transfer.
var DefaultMinAmount = decimal.NewFromInt(10000)

// AmountScale is the number of decimal places the ledger columns store.
const AmountScale = 2

var accountPattern = regexp.MustCompile(`^\d{10,13}$`)

// SubmitInput is a transfer request.
type SubmitInput struct {
	TransactionID string               `json:"transactionId" validate:"required,max=64"`
	SourceAccount string               `json:"sourceAccount" validate:"required,account"`
	DestAccount   string               `json:"destAccount" validate:"required,account,nefield=SourceAccount"`
	Amount        decimal.Decimal      `json:"amount"`
	Time          shared.LocalDateTime `json:"time"`
}

func (SubmitInput) String() string {
	return "SubmitInput{transactionId=?, sourceAccount=?, destAccount=?, amount=?, time=?}"
}

// LogValue implements slog.LogValuer.
func (in SubmitInput) LogValue() slog.Value {
	return slog.StringValue(in.String())
}

func (in *SubmitInput) normalize() {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	in.SourceAccount = strings.TrimSpace(in.SourceAccount)
	in.DestAccount = strings.TrimSpace(in.DestAccount)
}

// Validate checks the request; failures are shared.FieldErrors.
func (in SubmitInput) Validate(v *validator.Validate, minAmount decimal.Decimal) error {
	fields := shared.FieldErrors{}
	if err := v.Struct(in); err != nil {
		if fe, ok := shared.FieldErrorsFrom(err).(shared.FieldErrors); ok {
			fields = fe
		} else {
			return err
		}
	}
	switch {
	case !in.Amount.IsPositive():
		fields["amount"] = "gt=0"
	case in.Amount.LessThan(minAmount):
		fields["amount"] = "min=" + minAmount.String()
	case !in.Amount.Equal(in.Amount.Truncate(AmountScale)):
		fields["amount"] = "max 2 decimals"
	}
	if in.Time.IsZero() {
		fields["time"] = "required"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// NewValidator returns a validator that knows the account rule and reports
// fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("account", func(fl validator.FieldLevel) bool {
		return accountPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}
