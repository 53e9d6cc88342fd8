// Package validation содержит проверку входных данных на границе HTTP API.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

var (
	txHashRe = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)
	walletRe = regexp.MustCompile(`^[a-zA-Z0-9]{26,90}$`)
)

// Validator оборачивает go-playground/validator с правилами платформы.
type Validator struct {
	validate *validator.Validate
}

// New создаёт валидатор и регистрирует пользовательские теги fund, txhash и wallet.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// decimal.Decimal проверяется как float64, чтобы работали gt/gte/lte.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("fund", func(fl validator.FieldLevel) bool {
		return model.Fund(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("txhash", func(fl validator.FieldLevel) bool {
		return IsValidTxHash(fl.Field().String())
	})
	_ = v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return IsValidWallet(fl.Field().String())
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return model.IsWeekday(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct проверяет структуру и возвращает ошибку с понятным описанием первого нарушения.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "fund":
		return fmt.Sprintf("%s must be one of: gold silver dollar bitcoin", fe.Field())
	case "txhash":
		return fmt.Sprintf("%s must be a 64-character hex transaction hash", fe.Field())
	case "wallet":
		return fmt.Sprintf("%s must be a valid wallet address", fe.Field())
	case "weekday":
		return fmt.Sprintf("%s must be a weekday name", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// IsValidTxHash проверяет формат хэша транзакции: 64 шестнадцатеричных символа, опционально с 0x.
func IsValidTxHash(hash string) bool {
	return txHashRe.MatchString(hash)
}

// IsValidWallet проверяет формат адреса кошелька.
func IsValidWallet(addr string) bool {
	return walletRe.MatchString(addr)
}
