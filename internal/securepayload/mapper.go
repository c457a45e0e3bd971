// Package securepayload converts plaintext transaction records to and from
// RSA-encrypted inter-service packets.
package securepayload

import (
	"crypto/rsa"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Packet is the wire format exchanged between services. Every field is a
// base64 RSA ciphertext of the field rendered as a string.
type Packet struct {
	EncryptedTransactionID string `json:"encryptedTransactionId"`
	EncryptedAccount       string `json:"encryptedAccount"`
	EncryptedInDebt        string `json:"encryptedInDebt"`
	EncryptedHave          string `json:"encryptedHave"`
	EncryptedTime          string `json:"encryptedTime"`
}

func (Packet) String() string {
	return "Packet[MASKED DATA]"
}

// LogValue implements slog.LogValuer.
func (p Packet) LogValue() slog.Value {
	return slog.StringValue(p.String())
}

// Fields is one side of a transfer in plaintext. The id length cap keeps every
// packet field well under the RSA plaintext ceiling.
type Fields struct {
	TransactionID string               `json:"transactionId" validate:"required,max=64"`
	Account       string               `json:"account" validate:"required"`
	InDebt        decimal.Decimal      `json:"inDebt"`
	Have          decimal.Decimal      `json:"have"`
	Time          shared.LocalDateTime `json:"time"`
}

func (Fields) String() string {
	return "Fields{transactionId=?, account=?, inDebt=?, have=?, time=?}"
}

// LogValue implements slog.LogValuer.
func (f Fields) LogValue() slog.Value {
	return slog.StringValue(f.String())
}

// Mapper encrypts for a recipient and decrypts with the local private key.
// It holds only immutable keys and is safe for concurrent use.
type Mapper struct {
	recipient *rsa.PublicKey
	private   *rsa.PrivateKey
	validate  *validator.Validate
}

// NewMapper constructs a Mapper.
func NewMapper(recipient *rsa.PublicKey, private *rsa.PrivateKey) (*Mapper, error) {
	if recipient == nil || private == nil {
		return nil, shared.Wrap(shared.ErrConfig, "securepayload: keys required", nil)
	}
	return &Mapper{recipient: recipient, private: private, validate: newValidator()}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ToEncrypted RSA-encrypts each field individually. Invalid plaintext is a
// validation error.
func (m *Mapper) ToEncrypted(f Fields) (Packet, error) {
	f.TransactionID = strings.TrimSpace(f.TransactionID)
	f.Account = strings.TrimSpace(f.Account)
	if fields := m.check(f); len(fields) > 0 {
		return Packet{}, fields
	}
	values := []string{
		f.TransactionID,
		f.Account,
		f.InDebt.String(),
		f.Have.String(),
		shared.FormatLocalDateTime(f.Time.Time),
	}
	out := make([]string, len(values))
	for i, v := range values {
		enc, err := cryptox.EncryptRSA(v, m.recipient)
		if err != nil {
			return Packet{}, err
		}
		out[i] = enc
	}
	return Packet{
		EncryptedTransactionID: out[0],
		EncryptedAccount:       out[1],
		EncryptedInDebt:        out[2],
		EncryptedHave:          out[3],
		EncryptedTime:          out[4],
	}, nil
}

// ToDecrypted decrypts every field and re-validates the record. Any failure,
// including a well-formed but invalid record, is shared.ErrData.
func (m *Mapper) ToDecrypted(p Packet) (Fields, error) {
	raw := []string{p.EncryptedTransactionID, p.EncryptedAccount, p.EncryptedInDebt, p.EncryptedHave, p.EncryptedTime}
	plain := make([]string, len(raw))
	for i, v := range raw {
		if strings.TrimSpace(v) == "" {
			return Fields{}, shared.Wrap(shared.ErrData, "securepayload: blank field", nil)
		}
		dec, err := cryptox.DecryptRSA(v, m.private)
		if err != nil {
			return Fields{}, err
		}
		plain[i] = dec
	}
	inDebt, err := decimal.NewFromString(strings.TrimSpace(plain[2]))
	if err != nil {
		return Fields{}, shared.Wrap(shared.ErrData, "securepayload: inDebt", nil)
	}
	have, err := decimal.NewFromString(strings.TrimSpace(plain[3]))
	if err != nil {
		return Fields{}, shared.Wrap(shared.ErrData, "securepayload: have", nil)
	}
	at, err := shared.ParseLocalDateTime(plain[4])
	if err != nil {
		return Fields{}, shared.Wrap(shared.ErrData, "securepayload: time", nil)
	}
	f := Fields{
		TransactionID: strings.TrimSpace(plain[0]),
		Account:       strings.TrimSpace(plain[1]),
		InDebt:        inDebt,
		Have:          have,
		Time:          shared.LocalDateTime{Time: at},
	}
	if fields := m.check(f); len(fields) > 0 {
		return Fields{}, shared.Wrap(shared.ErrData, "securepayload: invalid record", nil)
	}
	return f, nil
}

// check runs the struct tags, then the amount and time rules the tags cannot
// express: non-negative amounts with exactly one positive side.
func (m *Mapper) check(f Fields) shared.FieldErrors {
	fields := shared.FieldErrors{}
	if err := m.validate.Struct(f); err != nil {
		fe, ok := shared.FieldErrorsFrom(err).(shared.FieldErrors)
		if !ok {
			fields["record"] = "invalid"
			return fields
		}
		fields = fe
	}
	if f.InDebt.IsNegative() {
		fields["inDebt"] = "gte=0"
	}
	if f.Have.IsNegative() {
		fields["have"] = "gte=0"
	}
	if f.InDebt.IsPositive() == f.Have.IsPositive() {
		fields["amount"] = "exactly one side positive"
	}
	if f.Time.IsZero() {
		fields["time"] = "required"
	}
	return fields
}
